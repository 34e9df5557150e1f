package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

func get(ctx context.Context, c *Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func post(ctx context.Context, c *Client, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "catalog-api", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryWaitMin)
	assert.Equal(t, 5*time.Second, cfg.RetryWaitMax)
	assert.Equal(t, 16, cfg.MaxConnsPerHost)
}

func TestNew_ReturnsClient(t *testing.T) {
	client := New(DefaultConfig())
	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.Nil(t, client.limiter)
}

func TestURL(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:3001/api/"})

	got, err := client.URL("/product/chair", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/api/product/chair", got)

	got, err = client.URL("product", url.Values{"page": {"0"}, "size": {"9"}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/api/product?page=0&size=9", got)
}

func TestURL_MissingBase(t *testing.T) {
	_, err := New(Config{}).URL("/category", nil)
	require.Error(t, err)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second, MaxConnsPerHost: 10})

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")
}

func TestPost_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"Sedie"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second, MaxConnsPerHost: 10})

	resp, err := post(context.Background(), client, server.URL, "application/json", strings.NewReader(`{"name":"Sedie"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDo_ErrorStatusIsReturnedNotRaised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := get(context.Background(), New(Config{Timeout: 5 * time.Second}), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDo_SetsRequestID(t *testing.T) {
	seen := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second})

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	resp, err = get(ctx, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Len(t, <-seen, 36, "generated id should be a uuid")
	assert.Equal(t, "corr-42", <-seen)
}

func TestDo_RequestInterceptorsRunInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "first,second", r.Header.Get("X-Order"))
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second})
	client.UseRequest(func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer abc")
		req.Header.Set("X-Order", "first")
		return nil
	})
	client.UseRequest(func(req *http.Request) error {
		req.Header.Set("X-Order", req.Header.Get("X-Order")+",second")
		return nil
	})

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_RequestInterceptorErrorAborts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	boom := errors.New("token store unavailable")
	client := New(Config{Timeout: 5 * time.Second})
	client.UseRequest(func(*http.Request) error { return boom })

	_, err := get(context.Background(), client, server.URL)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), hits.Load())
}

func TestDo_ResponseInterceptorSeesEveryStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"expired"}`))
	}))
	defer server.Close()

	var statuses []int
	client := New(Config{Timeout: 5 * time.Second})
	client.UseResponse(func(_ *http.Request, resp *http.Response) {
		statuses = append(statuses, resp.StatusCode)
	})

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []int{http.StatusUnauthorized}, statuses)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"expired"}`, string(body), "interceptor must leave the body intact")
}

func TestDo_ConnectionRefusedIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := get(context.Background(), New(Config{Timeout: time.Second}), addr)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.True(t, apperrors.IsNetwork(err))
}

func TestDo_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := get(context.Background(), New(Config{Timeout: 50 * time.Millisecond}), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestDo_NoRetryByDefault(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp, err := get(context.Background(), New(Config{Timeout: 5 * time.Second}), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDo_Retries5xxAndRewindsBody(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"Tavolo"}`, string(body))
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(Config{
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 5 * time.Millisecond,
		RetryWaitMax: 20 * time.Millisecond,
	})

	resp, err := post(context.Background(), client, server.URL, "application/json", strings.NewReader(`{"name":"Tavolo"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDo_DoesNotRetry501(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second, MaxRetries: 3, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDo_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := get(ctx, New(Config{Timeout: 5 * time.Second}), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestDo_RateLimited(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second, RateLimitRPS: 0.001, RateLimitBurst: 1})
	require.NotNil(t, client.limiter)

	resp, err := get(context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	// The bucket is now empty and refills far slower than the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = get(ctx, client, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_InvalidURL(t *testing.T) {
	_, err := get(context.Background(), New(DefaultConfig()), "://bad")
	require.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("plain")))
}

func TestRouteContext(t *testing.T) {
	assert.Empty(t, RouteFromContext(context.Background()))
	ctx := WithRoute(context.Background(), "/product/{slug}")
	assert.Equal(t, "/product/{slug}", RouteFromContext(ctx))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "200", statusLabel(&http.Response{StatusCode: 200}, nil))
	assert.Equal(t, "network", statusLabel(nil, apperrors.Network(errors.New("refused"))))
	assert.Equal(t, "error", statusLabel(nil, errors.New("interceptor")))
}
