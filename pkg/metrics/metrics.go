package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	UpstreamCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_call_latency_ms",
			Help:    "Latency of calls to upstream services in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"upstream", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	EmailLifecycleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_lifecycle_count",
			Help: "Total number of email lifecycle actions processed",
		},
		[]string{"action", "outcome"}, // action: CREATE, SEND, UPDATE, DELETE; outcome: success, rejected, failed
	)

	EmailDispatchedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatched_count",
			Help: "Total number of dispatch confirmations applied",
		},
		[]string{"outcome"}, // outcome: success, stale, error
	)

	DraftFlushCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_flush_count",
			Help: "Total number of draft autosave flushes",
		},
		[]string{"outcome"}, // outcome: success, error
	)
)

// RecordHTTPRequestDuration records the latency of a served HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordUpstreamCallLatency records the latency of a call to an upstream service.
func RecordUpstreamCallLatency(upstream, status string, duration time.Duration) {
	UpstreamCallLatency.WithLabelValues(upstream, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration records the latency of a database query.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementEmailLifecycle increments the lifecycle action counter.
func IncrementEmailLifecycle(action, outcome string) {
	EmailLifecycleCount.WithLabelValues(action, outcome).Inc()
}

// IncrementEmailDispatched increments the dispatch confirmation counter.
func IncrementEmailDispatched(outcome string) {
	EmailDispatchedCount.WithLabelValues(outcome).Inc()
}

// IncrementDraftFlush increments the draft autosave flush counter.
func IncrementDraftFlush(outcome string) {
	DraftFlushCount.WithLabelValues(outcome).Inc()
}
