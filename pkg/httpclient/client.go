package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Config holds HTTP client configuration
type Config struct {
	// Name labels metrics and spans, e.g. "catalog-api".
	Name string

	// BaseURL is prefixed to relative paths passed to URL.
	BaseURL string

	// Timeout bounds the whole request, connection included.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts on network errors and 5xx.
	// Zero disables retrying.
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	MaxConnsPerHost int

	// RateLimitRPS caps outgoing requests per second. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultConfig returns sensible defaults for talking to the catalog backend.
func DefaultConfig() Config {
	return Config{
		Name:            "catalog-api",
		Timeout:         10 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 16,
	}
}

// RequestInterceptor runs on every outgoing request before it is sent.
// Returning an error aborts the request.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes every response received from the server,
// whatever its status. It must not consume the body.
type ResponseInterceptor func(req *http.Request, resp *http.Response)

// Client wraps http.Client with interceptors, optional retry and rate limiting,
// tracing and metrics.
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    *url.URL
	limiter    *rate.Limiter
	tracer     trace.Tracer
	onRequest  []RequestInterceptor
	onResponse []ResponseInterceptor
}

// New creates a new HTTP client. An unparsable BaseURL is reported on the
// first call to URL rather than here.
func New(cfg Config) *Client {
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = DefaultConfig().MaxConnsPerHost
	}
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		tracer: otel.Tracer("github.com/utafrali/storefront/pkg/httpclient"),
	}

	if cfg.BaseURL != "" {
		if u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/")); err == nil {
			c.baseURL = u
		}
	}

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	return c
}

// UseRequest appends a request interceptor. Interceptors run in the order
// they were added. Not safe to call concurrently with Do.
func (c *Client) UseRequest(fn RequestInterceptor) {
	c.onRequest = append(c.onRequest, fn)
}

// UseResponse appends a response interceptor.
func (c *Client) UseResponse(fn ResponseInterceptor) {
	c.onResponse = append(c.onResponse, fn)
}

// URL resolves path against the configured base URL and attaches query.
func (c *Client) URL(path string, query url.Values) (string, error) {
	if c.baseURL == nil {
		return "", fmt.Errorf("httpclient %s: invalid or missing base URL %q", c.config.Name, c.config.BaseURL)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// Do executes the request. Transport failures, timeouts included, come back
// as apperrors.ErrNetwork; any HTTP response, whatever its status, is
// returned with a nil error for the caller to inspect.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	if req.Header.Get(RequestIDHeader) == "" {
		id := logger.CorrelationIDFromContext(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		req.Header.Set(RequestIDHeader, id)
	}

	for _, fn := range c.onRequest {
		if err := fn(req); err != nil {
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}

	route := RouteFromContext(ctx)
	if route == "" {
		route = req.URL.Path
	}

	ctx, span := c.tracer.Start(ctx, req.Method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("http.route", route),
			attribute.String("http.request_id", req.Header.Get(RequestIDHeader)),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.do(ctx, req)
	observeRequest(c.config.Name, req.Method, route, resp, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	for _, fn := range c.onResponse {
		fn(req, resp)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
			if wait > c.config.RetryWaitMax {
				wait = c.config.RetryWaitMax
			}

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, apperrors.Network(ctx.Err())
			}

			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, fmt.Errorf("rewind request body: %w", bodyErr)
				}
				req.Body = body
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, apperrors.Network(err)
			}
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if isRetryableError(err) && attempt < c.config.MaxRetries && ctx.Err() == nil {
				continue
			}
			return nil, apperrors.Network(fmt.Errorf("%s %s after %d attempt(s): %w", req.Method, req.URL.Path, attempt+1, err))
		}

		// Retry on 5xx errors (except 501 Not Implemented)
		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented && attempt < c.config.MaxRetries {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return resp, nil
}

// isRetryableError determines if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if err == context.Canceled {
		return false
	}
	_, ok := err.(net.Error)
	return ok
}

type routeKey struct{}

// WithRoute tags ctx with the route template of the request about to be
// made (e.g. "/product/{slug}") so metrics and spans stay low-cardinality.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFromContext returns the route template set by WithRoute.
func RouteFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(routeKey{}).(string); ok {
		return r
	}
	return ""
}
