// Package server wires configuration, the sandbox policy store, the
// filesystem service and the HTTP API together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/wardenfs/warden/internal/api/http"
	"github.com/wardenfs/warden/internal/api/middleware"
	"github.com/wardenfs/warden/internal/fsops"
	"github.com/wardenfs/warden/internal/infrastructure/config"
	"github.com/wardenfs/warden/internal/infrastructure/logging"
	"github.com/wardenfs/warden/internal/infrastructure/monitoring"
	"github.com/wardenfs/warden/internal/sandbox"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	store      *sandbox.Store
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// New creates a server instance from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	policy := store.Snapshot()
	logger.Info("Sandbox policy loaded",
		zap.Strings("allowed_roots", policy.AllowedRoots),
		zap.Bool("read_only", policy.ReadOnly),
		zap.Int64("max_file_size", policy.MaxFileSize),
	)

	metrics := monitoring.NewMetrics()
	fs := fsops.NewService(store, logger).WithMetrics(metrics)
	handlers := api.NewHandlers(fs, store, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	files := router.Group("/files")
	files.POST("/read", handlers.ReadFile)
	files.POST("/write", handlers.WriteFile)
	files.POST("/delete", handlers.DeleteFile)
	files.POST("/mkdir", handlers.Mkdir)
	files.POST("/move", handlers.MoveFile)
	files.POST("/edit", handlers.EditFile)
	files.POST("/stat", handlers.StatFile)
	files.POST("/tree", handlers.Tree)
	files.POST("/search", handlers.Search)

	router.GET("/policy", handlers.GetPolicy)
	router.PUT("/policy", handlers.UpdatePolicy)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		store:      store,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// buildStore loads the sandbox policy, preferring the policy file when it
// exists, and falling back to environment configuration.
func buildStore(cfg *config.Config, logger *logging.Logger) (*sandbox.Store, error) {
	sb := cfg.Sandbox

	if sb.PolicyFile != "" {
		if _, err := os.Stat(sb.PolicyFile); err == nil {
			policy, err := sandbox.LoadPolicy(sb.PolicyFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded sandbox policy file", zap.String("file", sb.PolicyFile))
			return sandbox.NewStore(policy, sb.PolicyFile)
		}
		logger.Info("Policy file missing, using environment policy", zap.String("file", sb.PolicyFile))
	}

	if len(sb.AllowedPaths) == 0 {
		return nil, fmt.Errorf("no allowed paths configured: set WARDEN_ALLOWED_PATHS or a policy file")
	}

	return sandbox.NewStore(&sandbox.Config{
		AllowedRoots:    sb.AllowedPaths,
		ReadOnly:        sb.ReadOnly,
		MaxFileSize:     sb.MaxFileSizeMB << 20,
		ExcludePatterns: sb.ExcludePatterns,
	}, sb.PolicyFile)
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.httpServer.Shutdown(ctx)
	s.logger.Sync()
	return err
}
