// Package app provides top-level lifecycle management for the betting
// engine. It wires together the chain client, oracle feed cache, position
// ledger, signal bus, services, and HTTP server, and runs them until
// shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zentrolabs/zentro-engine/internal/config"
)

// shutdownGrace bounds how long in-flight HTTP requests may run during
// shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// background goroutines, and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// Oracle background polling keeps the configured feeds warm.
	if len(a.cfg.Oracle.Symbols) > 0 {
		deps.Feeds.StartPolling(a.cfg.Oracle.Symbols, a.cfg.Oracle.PollInterval.Duration)
		a.closers = append(a.closers, deps.Feeds.StopPolling)
	}

	// Price feeder publishes winning feed updates on the bus.
	g.Go(func() error {
		return deps.Feeder.Run(ctx)
	})

	// Operator alerts consume position events from the bus.
	if deps.Alerter != nil {
		g.Go(func() error {
			return deps.Alerter.Run(ctx)
		})
	}

	// WebSocket hub bridges bus events to connected clients.
	if deps.Hub != nil {
		g.Go(func() error {
			return deps.Hub.Run(ctx)
		})
	}

	// HTTP server.
	if deps.Server != nil {
		g.Go(func() error {
			return deps.Server.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return deps.Server.Shutdown(shutdownCtx)
		})
	}

	a.logger.InfoContext(ctx, "application started")
	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
