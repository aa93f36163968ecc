// Package metrics registers the platform's Prometheus collectors. Counters
// cover the synchronization and access-control paths; HTTP instrumentation
// wraps the routers of both binaries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SyncAttempts counts metadata registrations by outcome
	// (success, auth_retry, auth_rejected, unavailable).
	SyncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedhistoria_sync_attempts_total",
			Help: "Metadata registry sync attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// TokenRefreshes counts service-token refreshes by source
	// (cache, local, remote, none).
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedhistoria_token_refreshes_total",
			Help: "Service token acquisitions by source.",
		},
		[]string{"source"},
	)

	// AccessChecks counts policy filter decisions per record.
	AccessChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedhistoria_access_checks_total",
			Help: "Access policy filter decisions by outcome.",
		},
		[]string{"outcome"},
	)

	// AuditDropped counts audit entries lost to delivery failures.
	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fedhistoria_audit_dropped_total",
			Help: "Audit entries dropped after delivery failure.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedhistoria_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedhistoria_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers all collectors on the default registry
func Init() {
	prometheus.MustRegister(
		SyncAttempts,
		TokenRefreshes,
		AccessChecks,
		AuditDropped,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// Instrument measures request counts and latency per route pattern
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := strconv.Itoa(ww.Status())
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}
