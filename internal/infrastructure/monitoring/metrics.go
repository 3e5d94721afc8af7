// Package monitoring exposes Prometheus metrics for the HTTP layer and the
// filesystem operations behind it.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	operationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_fs_operations_total",
			Help: "Filesystem operations by kind and result code.",
		}, []string{"op", "code"}),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.operationsTotal)
	return m
}

// ObserveOperation records one filesystem operation outcome.
func (m *Metrics) ObserveOperation(op, code string) {
	m.operationsTotal.WithLabelValues(op, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
