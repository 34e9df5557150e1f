// Package app wires the storefront components around one catalog backend and
// owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/admin"
	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/pkg/events"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Version is stamped into traces and the User-Agent.
var Version = "0.1.0"

// EventForbidden is published on the notice bus whenever the backend answers
// 403.
const EventForbidden = "api.forbidden"

// Option customises NewApp.
type Option func(*options)

type options struct {
	tokens tokenstore.Store
}

// WithTokenStore replaces the configured token store.
func WithTokenStore(s tokenstore.Store) Option {
	return func(o *options) { o.tokens = s }
}

// App holds the wired components. Front ends use the exported fields and call
// Shutdown exactly once when done.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Tokens     tokenstore.Store
	API        *api.Client
	Session    *session.Store
	Storefront *storefront.Service
	Admin      *admin.Console
	Health     *health.Handler
	Notices    *events.Bus[string]

	redis          *redis.Client
	diagServer     *http.Server
	diagAddr       net.Addr
	tracerShutdown func(context.Context) error
}

// NewApp builds every component. It makes no request to the catalog backend;
// a redis token store is pinged once.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(initCtx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		Notices:        events.NewBus[string]("notices"),
		Health:         health.NewHandler(),
		tracerShutdown: tracerShutdown,
	}

	a.Tokens = o.tokens
	if a.Tokens == nil {
		if a.Tokens, err = a.openTokenStore(initCtx); err != nil {
			_ = a.Shutdown(context.Background())
			return nil, err
		}
	}

	hc := httpclient.New(httpclient.Config{
		Name:            "catalog-api",
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.APITimeout,
		MaxRetries:      cfg.MaxRetries,
		RetryWaitMin:    httpclient.DefaultConfig().RetryWaitMin,
		RetryWaitMax:    httpclient.DefaultConfig().RetryWaitMax,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		MaxConnsPerHost: httpclient.DefaultConfig().MaxConnsPerHost,
	})
	apiOpts := []api.Option{api.WithNotifier(api.NotifierFunc(a.notify))}
	if cfg.CBEnabled {
		cb := httpclient.DefaultBreakerConfig(api.ServiceName)
		cb.OpenFor = cfg.CBTimeout
		cb.FailureRatio = cfg.CBFailureRatio
		cb.MinRequests = cfg.CBMinRequests
		breaker := httpclient.NewBreaker(hc, cb, logger).WithFallback(httpclient.UnavailableFallback)
		apiOpts = append(apiOpts, api.WithDoer(breaker))
	}
	a.API = api.New(hc, a.Tokens, logger, apiOpts...)

	a.Session = session.New(a.API, a.Tokens, logger)
	a.API.OnUnauthorized(a.Session.Invalidate)

	a.Storefront = storefront.New(a.API, logger, cfg.CatalogPageSize)
	a.Admin = admin.New(a.API, a.Session, logger, cfg.AdminPageSize)

	a.Health.RegisterCritical("catalog-api", a.API.Ping)
	if p, ok := a.Tokens.(tokenstore.Pinger); ok {
		a.Health.RegisterNonCritical("token-store", p.Ping)
	}

	logger.Debug("storefront wired",
		slog.String("api_url", cfg.APIURL),
		slog.String("token_store", cfg.TokenStore),
		slog.Bool("circuit_breaker", cfg.CBEnabled),
	)
	return a, nil
}

func (a *App) openTokenStore(ctx context.Context) (tokenstore.Store, error) {
	switch strings.ToLower(a.cfg.TokenStore) {
	case config.TokenStoreRedis:
		client, err := tokenstore.NewRedisClient(ctx, tokenstore.RedisConfig{
			Addr:     a.cfg.RedisAddr(),
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
			Key:      a.cfg.TokenKey,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis token store: %w", err)
		}
		a.redis = client
		return tokenstore.NewRedisStore(client, a.cfg.TokenKey), nil
	case config.TokenStoreMemory:
		return tokenstore.NewMemoryStore(""), nil
	default:
		return tokenstore.NewFileStore(a.cfg.TokenFile), nil
	}
}

func (a *App) notify(ctx context.Context, message string) {
	a.logger.WarnContext(ctx, "request forbidden", slog.String("message", message))
	a.Notices.Publish(events.New(ctx, EventForbidden, "api", message))
}

// Start opens the diagnostics listener when DIAGNOSTICS_ADDR is set. It returns
// once the socket is bound; serving continues until Shutdown.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.DiagnosticsAddr == "" {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.DiagnosticsAddr)
	if err != nil {
		return fmt.Errorf("listen diagnostics %s: %w", a.cfg.DiagnosticsAddr, err)
	}
	a.diagAddr = ln.Addr()
	a.diagServer = &http.Server{
		Handler:           newDiagnosticsRouter(a.Health, a.cfg.PprofAllowedCIDRs, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		a.logger.Info("diagnostics listener started", slog.String("addr", a.diagAddr.String()))
		if err := a.diagServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("diagnostics listener stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// DiagnosticsAddr is the bound diagnostics address, or nil before Start.
func (a *App) DiagnosticsAddr() net.Addr { return a.diagAddr }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Shutdown stops components in order: diagnostics listener, in-process
// subscribers, the redis connection, then the tracer so spans of the drained
// work are flushed.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.diagServer != nil {
		httpCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.diagServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("diagnostics shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.Admin != nil {
		a.Admin.Close()
	}
	if a.Session != nil {
		a.Session.Close()
	}
	a.Notices.Close()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
