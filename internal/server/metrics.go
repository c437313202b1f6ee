// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chunksIndexed is the number of chunks in the current collection.
	chunksIndexed prometheus.Gauge

	// generateRequestsTotal counts completed /api/generate requests,
	// partitioned by outcome: "ok" or "error".
	generateRequestsTotal *prometheus.CounterVec

	// generateDurationSeconds records the wall-clock duration of each
	// generation call, partitioned by outcome.
	generateDurationSeconds *prometheus.HistogramVec

	// tokensTotal counts LLM tokens consumed, partitioned by direction:
	// "prompt" or "completion".
	tokensTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chunksIndexed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ragviz",
			Subsystem: "pipeline",
			Name:      "chunks_indexed",
			Help:      "Number of chunks in the current collection.",
		}),

		generateRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragviz",
			Subsystem: "generate",
			Name:      "requests_total",
			Help:      "Total number of /api/generate requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		generateDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragviz",
			Subsystem: "generate",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of generation calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragviz",
			Subsystem: "generate",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed, partitioned by direction.",
		}, []string{"direction"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragviz",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragviz",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
