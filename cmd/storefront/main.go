package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/cli"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/tui"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stdin, os.Stdout, os.Stderr, open, tui.Run)
	return c.Run(ctx, os.Args[1:])
}

// open loads configuration and wires the application. It only runs for
// commands that talk to the backend, so help works without any setup.
func open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewWithOptions("storefront", logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)
	slog.SetDefault(log)
	log.Debug("starting storefront",
		slog.String("environment", cfg.Environment),
		slog.String("api_url", cfg.APIURL),
		slog.String("token_store", cfg.TokenStore),
	)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize application: %w", err)
	}
	return application, nil
}
