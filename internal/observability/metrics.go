// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenVerifications counts bearer token outcomes by result
	// (ok, absent, expired, invalid_signature, malformed).
	TokenVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepthoughts_token_verifications_total",
		Help: "Bearer token verification outcomes",
	}, []string{"result"})

	// GateRejections counts gated operations refused for anonymous callers.
	GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepthoughts_auth_gate_rejections_total",
		Help: "Gated operations rejected because the caller was anonymous",
	}, []string{"operation"})

	// OperationLatency records resolver latency by operation and outcome code.
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deepthoughts_operation_latency_seconds",
		Help:    "Resolver latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "code"})

	// DatabaseQueryLatency records store latency by method and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deepthoughts_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepthoughts_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts profile cache hits, misses and write-backs dropped
	// because the key was invalidated mid-fetch.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepthoughts_cache_lookups_total",
		Help: "Profile cache lookups by result",
	}, []string{"result"})
)

// TrackOperation returns a function that records the latency of operation
// when called with the final outcome code (e.g. defer).
func TrackOperation(operation string) func(code string) {
	start := time.Now()
	return func(code string) {
		OperationLatency.WithLabelValues(operation, code).Observe(time.Since(start).Seconds())
	}
}

// TrackQuery returns a function that records the latency of a store call
// when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
