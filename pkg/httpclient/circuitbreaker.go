package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// BreakerConfig configures the circuit breaker in front of a Client.
type BreakerConfig struct {
	Name string

	// HalfOpenRequests are let through once the open period ends to test the backend.
	HalfOpenRequests uint32
	// Window clears the failure counts while closed; 0 never clears them.
	Window time.Duration
	// OpenFor is how long requests are refused after tripping.
	OpenFor time.Duration

	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the settings used in front of the catalog
// backend.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		HalfOpenRequests: 1,
		Window:           time.Minute,
		OpenFor:          15 * time.Second,
		FailureRatio:     0.6,
		MinRequests:      5,
	}
}

// Fallback answers a request refused by an open circuit.
type Fallback func(ctx context.Context, err error) (*http.Response, error)

// UnavailableFallback turns an open circuit into a network-class error with
// no status, so callers treat it like a request that never got an answer.
func UnavailableFallback(_ context.Context, err error) (*http.Response, error) {
	appErr := apperrors.Network(err)
	appErr.Code = "CIRCUIT_OPEN"
	appErr.Message = "catalog backend is temporarily unavailable, try again shortly"
	return nil, appErr
}

// ErrCircuitOpen is returned for a refused request when no fallback is set.
var ErrCircuitOpen = gobreaker.ErrOpenState

// errServerFailure counts a 5xx against the breaker while the response
// itself still reaches the caller.
var errServerFailure = errors.New("server failure")

// Doer executes one HTTP request.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Breaker guards a Doer with a circuit breaker. Transport failures and 5xx
// responses count as failures; 4xx answers do not.
type Breaker struct {
	next     Doer
	cb       *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback Fallback
	name     string
}

// NewBreaker wraps next.
func NewBreaker(next Doer, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(breakerStateValue(gobreaker.StateClosed))

	return &Breaker{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger: logger,
		name:   cfg.Name,
	}
}

// WithFallback returns a copy of b that answers refused requests with fn.
func (b *Breaker) WithFallback(fn Fallback) *Breaker {
	cpy := *b
	cpy.fallback = fn
	return &cpy
}

// Do executes req through the breaker.
func (b *Breaker) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.next.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errServerFailure):
		return resp, nil
	case b.fallback != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)):
		breakerFallbacks.WithLabelValues(b.name).Inc()
		b.logger.WarnContext(ctx, "circuit open, request refused", slog.String("breaker", b.name))
		return b.fallback(ctx, err)
	default:
		return nil, err
	}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
