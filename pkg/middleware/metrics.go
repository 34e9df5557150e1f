package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	servedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostics_http_requests_total",
			Help: "Requests served by the diagnostics listener",
		},
		[]string{"listener", "method", "route", "status"},
	)

	servedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagnostics_http_request_duration_seconds",
			Help:    "Time spent serving diagnostics requests",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"listener", "route"},
	)
)

// Metrics counts and times requests by chi route pattern. Unmatched paths are
// grouped under "unmatched" to keep label cardinality bounded.
func Metrics(listener string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			servedTotal.WithLabelValues(listener, r.Method, route, strconv.Itoa(rec.status)).Inc()
			servedDuration.WithLabelValues(listener, route).Observe(time.Since(start).Seconds())
		})
	}
}
