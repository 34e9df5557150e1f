// Package api is the typed client of the catalog backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// ServiceName labels errors coming from the catalog backend.
const ServiceName = "catalog-api"

// ForbiddenNotice is raised through the Notifier on every 403.
const ForbiddenNotice = "You do not have the permissions required for this action."

// HTTPDoer executes requests. Both httpclient.Client and httpclient.Breaker
// satisfy it.
type HTTPDoer = httpclient.Doer

// Notifier surfaces a user-facing message outside the normal call flow.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// Option configures a Client.
type Option func(*Client)

// WithDoer routes requests through d, typically a circuit breaker wrapping the
// same httpclient.Client.
func WithDoer(d HTTPDoer) Option {
	return func(c *Client) { c.doer = d }
}

// WithNotifier sets the 403 notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// Client calls the catalog backend. Every request reads the bearer token from
// the token store at send time; a 401 clears it and fires the unauthorized
// handlers, a 403 fires the notifier. The original error is always returned.
type Client struct {
	http     *httpclient.Client
	doer     HTTPDoer
	tokens   tokenstore.Store
	logger   *slog.Logger
	notifier Notifier

	mu             sync.RWMutex
	onUnauthorized []func(ctx context.Context)
}

// New wires the auth and status interceptors into hc and returns the client.
func New(hc *httpclient.Client, tokens tokenstore.Store, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:   hc,
		doer:   hc,
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc.UseRequest(c.authorize)
	hc.UseResponse(c.observe)
	return c
}

// OnUnauthorized registers fn to run after a 401 has cleared the token.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

func (c *Client) authorize(req *http.Request) error {
	token, ok, err := c.tokens.Load(req.Context())
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) observe(req *http.Request, resp *http.Response) {
	ctx := req.Context()
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.logger.WarnContext(ctx, "session expired or unauthorized, clearing token",
			slog.String("path", req.URL.Path),
		)
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.ErrorContext(ctx, "failed to clear token", slog.String("error", err.Error()))
		}
		c.mu.RLock()
		handlers := append([]func(context.Context){}, c.onUnauthorized...)
		c.mu.RUnlock()
		for _, fn := range handlers {
			fn(ctx)
		}
	case http.StatusForbidden:
		if c.notifier != nil {
			c.notifier.Notify(ctx, ForbiddenNotice)
		}
	}
}

// call performs one request and decodes a JSON response into out (which may
// be nil). Non-2xx responses are returned as *apperrors.AppError.
func (c *Client) call(ctx context.Context, method, route, path string, q url.Values, body io.Reader, contentType string, out any) error {
	target, err := c.http.URL(path, q)
	if err != nil {
		return err
	}

	ctx = httpclient.WithRoute(ctx, route)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.DebugContext(ctx, "calling catalog api",
		slog.String("method", method),
		slog.String("route", route),
	)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog api request failed",
			slog.String("method", method),
			slog.String("route", route),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "catalog api returned error",
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("status", resp.StatusCode),
		)
		return httpclient.ParseResponseError(resp, ServiceName)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode %s %s response: empty body", method, route)
		}
		return fmt.Errorf("decode %s %s response: %w", method, route, err)
	}
	return nil
}

func (c *Client) callJSON(ctx context.Context, method, route, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, route, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.call(ctx, method, route, path, nil, body, contentType, out)
}

// Ping checks that the backend answers HTTP at all. A 4xx answer counts as
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.call(ctx, http.MethodGet, "/category", "/category", url.Values{"size": {"1"}}, nil, "", nil)
	if err == nil || httpclient.IsClientError(StatusOf(err)) {
		return nil
	}
	return err
}
