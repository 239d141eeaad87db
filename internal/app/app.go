// Package app wires configuration, backends, and the HTTP server into a
// runnable application with coordinated startup and shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modelrelay/modelrelay/internal/backend"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/proxy"
)

// App orchestrates the lifecycle of the gateway server.
type App struct {
	cfg    *config.Config
	proxy  *proxy.Proxy
	health *Health
}

// New builds the application from validated configuration.
func New(cfg *config.Config) (*App, error) {
	providers := make(map[string]backend.Provider, len(cfg.Providers))
	names := make([]string, 0, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providers[name] = backend.Provider{BaseURL: p.BaseURL, APIKey: p.APIKey}
		names = append(names, name)
	}

	health := NewHealth()

	proxyServer, err := proxy.New(proxy.Options{
		Routing:       cfg.RoutingTable(),
		Backend:       backend.NewHTTPBackend(providers, nil),
		Readiness:     health,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		ProviderNames: names,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:    cfg,
		proxy:  proxyServer,
		health: health,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting gateway server")
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)
	a.health.SetReady(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	a.health.SetReady(false)
	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
