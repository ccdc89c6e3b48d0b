// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the rinnsal streaming service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// SessionBuckets defines histogram buckets suited for paced generation
// sessions, ranging from 100ms to 120s.
var SessionBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rinnsal_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rinnsal_request_duration_seconds",
			Help:    "Request duration",
			Buckets: SessionBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks open SSE and WebSocket connections.
	StreamingConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rinnsal_streaming_connections_active",
			Help: "Active streaming connections",
		},
		[]string{"transport"},
	)

	// SessionsActive tracks generation sessions that have not reached a
	// terminal state.
	SessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rinnsal_sessions_active",
			Help: "Active generation sessions",
		},
		[]string{"transport"},
	)

	// SessionsFinishedTotal counts sessions by transport and terminal state.
	SessionsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rinnsal_sessions_finished_total",
			Help: "Finished generation sessions",
		},
		[]string{"transport", "state"},
	)

	// SessionDuration records how long sessions ran, by terminal state.
	SessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rinnsal_session_duration_seconds",
			Help:    "Session duration",
			Buckets: SessionBuckets,
		},
		[]string{"transport", "state"},
	)

	// ChunksEmittedTotal counts chunks delivered to callers.
	ChunksEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rinnsal_chunks_emitted_total",
			Help: "Chunks emitted",
		},
		[]string{"transport"},
	)

	// CancelRequestsTotal counts cancel calls by outcome ("hit" or "miss").
	CancelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rinnsal_cancel_requests_total",
			Help: "Cancel requests",
		},
		[]string{"result"},
	)

	// RegistryEntries reports the number of cancellable sessions currently
	// registered.
	RegistryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rinnsal_registry_entries",
			Help: "Session registry entries",
		},
	)

	// StorageHealthy is 1 while the last background store health check
	// succeeded and 0 after a failure.
	StorageHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rinnsal_storage_healthy",
			Help: "Result of the last history store health check",
		},
	)

	// RateLimitRejectedTotal counts generate calls rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rinnsal_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		SessionsActive,
		SessionsFinishedTotal,
		SessionDuration,
		ChunksEmittedTotal,
		CancelRequestsTotal,
		RegistryEntries,
		StorageHealthy,
		RateLimitRejectedTotal,
	)
}
