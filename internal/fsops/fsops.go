package fsops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wardenfs/warden/internal/infrastructure/logging"
	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

// Service executes filesystem operations under the active sandbox policy.
// It is safe for concurrent use; each call reads one policy snapshot and
// relies on filesystem-level atomicity (temp file + rename) for mutations.
// Concurrent writers to the same path race as the OS defines them:
// last-writer-wins.
type Service struct {
	store   *sandbox.Store
	log     *logging.Logger
	metrics OperationRecorder
}

// OperationRecorder counts operation outcomes, typically backed by Prometheus.
type OperationRecorder interface {
	ObserveOperation(op, code string)
}

// NewService creates a filesystem operations service.
func NewService(store *sandbox.Store, log *logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// WithMetrics attaches an operation recorder.
func (s *Service) WithMetrics(m OperationRecorder) *Service {
	s.metrics = m
	return s
}

// Policy returns the active policy snapshot.
func (s *Service) Policy() *sandbox.Config {
	return s.store.Snapshot()
}

// resolve snapshots the policy and resolves raw for op.
func (s *Service) resolve(raw string, op sandbox.Operation) (*sandbox.Config, sandbox.Resolved, error) {
	cfg := s.store.Snapshot()
	resolved, err := cfg.Resolve(raw)
	if err != nil {
		return cfg, sandbox.Resolved{}, err
	}
	if err := cfg.Authorize(resolved, op); err != nil {
		return cfg, sandbox.Resolved{}, err
	}
	return cfg, resolved, nil
}

// checkCtx converts caller cancellation into a Cancelled status. Long
// operations call it between steps.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return status.Cancelled("operation cancelled: %v", ctx.Err())
	default:
		return nil
	}
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics != nil {
		code := "ok"
		if err != nil {
			code = string(status.Of(err))
		}
		s.metrics.ObserveOperation(op, code)
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.log.Warn("filesystem operation failed", append(fields, zap.String("code", string(status.Of(err))), zap.Error(err))...)
		return
	}
	s.log.Debug("filesystem operation completed", fields...)
}
