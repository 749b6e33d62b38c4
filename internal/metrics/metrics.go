// Package metrics provides Prometheus metrics for the orchestrator
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Worksheet metrics
	RecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_recompute_total",
			Help: "Total number of bulk sizing passes",
		},
		[]string{"status"},
	)

	MatchesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cable_matches_applied_total",
			Help: "Total number of catalog parts attached to rows",
		},
	)

	ImportIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_import_defaulted_values_total",
			Help: "Total number of imported values replaced by their default",
		},
		[]string{"field"},
	)

	WorkspacesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cable_workspaces_active",
			Help: "Number of open workspaces",
		},
	)

	// Upstream call metrics
	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_upstream_calls_total",
			Help: "Total number of calls made to the sizing service",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cable_upstream_call_duration_seconds",
			Help:    "Duration of calls to the sizing service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cable_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordUpstream records one call to the sizing service. status is the HTTP
// status code, or 0 when no response was received.
func RecordUpstream(endpoint string, status int, duration time.Duration) {
	UpstreamCalls.WithLabelValues(endpoint, StatusClass(status)).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, StatusClass(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// StatusClass converts a status code to a range string (2xx, 3xx, 4xx, 5xx).
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return strconv.Itoa(code)
	}
}
