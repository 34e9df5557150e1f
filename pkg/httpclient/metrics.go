package httpclient

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outgoing HTTP requests",
		},
		[]string{"client", "method", "route", "status"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Outgoing HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"client", "method", "route"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_client_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	breakerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_breaker_fallbacks_total",
			Help: "Requests refused by an open circuit and answered by the fallback",
		},
		[]string{"breaker"},
	)
)

// statusLabel collapses a request outcome into a metrics label: the HTTP
// status code, "network" for transport failures, or "error" otherwise.
func statusLabel(resp *http.Response, err error) string {
	switch {
	case err == nil && resp != nil:
		return strconv.Itoa(resp.StatusCode)
	case errors.Is(err, apperrors.ErrNetwork):
		return "network"
	default:
		return "error"
	}
}

func observeRequest(client, method, route string, resp *http.Response, err error, elapsed time.Duration) {
	clientRequestsTotal.WithLabelValues(client, method, route, statusLabel(resp, err)).Inc()
	clientRequestDuration.WithLabelValues(client, method, route).Observe(elapsed.Seconds())
}
