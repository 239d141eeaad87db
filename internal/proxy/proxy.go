// Package proxy exposes the Anthropic-facing HTTP surface of the gateway.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/modelrelay/modelrelay/internal/backend"
	"github.com/modelrelay/modelrelay/internal/observability/middleware"
	"github.com/modelrelay/modelrelay/internal/relay"
)

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Options configures a Proxy.
type Options struct {
	Routing      relay.Routing
	Backend      backend.Completer
	Readiness    ReadinessChecker
	MaxBodyBytes int64
	// ProviderNames is the list of configured upstream providers, surfaced
	// on /status.
	ProviderNames []string
}

// Proxy is the HTTP server translating Anthropic Messages API traffic onto
// OpenAI-compatible upstream providers.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// New assembles the proxy's routes and middleware chain.
func New(opts Options) (*Proxy, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if opts.Readiness == nil {
		return nil, errors.New("readiness checker is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	messages := &MessagesHandler{
		Routing:  opts.Routing,
		Backend:  opts.Backend,
		Validate: validate,
	}

	names := slices.Clone(opts.ProviderNames)
	slices.Sort(names)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", messages)
	mux.Handle("POST /v1/messages/count_tokens", NewCountTokensHandler(validate))
	mux.Handle("GET /status", statusHandler(opts.Routing, names))
	mux.Handle("GET /health/live", livenessHandler())
	mux.Handle("GET /health/ready", readinessHandler(opts.Readiness))

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(opts.MaxBodyBytes),
	)

	return &Proxy{handler: handler}, nil
}

// Handler returns the fully assembled HTTP handler, primarily for tests.
func (p *Proxy) Handler() http.Handler {
	return p.handler
}

// Start begins serving on addr. It returns a channel that receives the
// terminal serve error, if any, and closes on clean shutdown.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	p.server = &http.Server{
		Addr:    addr,
		Handler: p.handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		slog.InfoContext(ctx, "listening", "addr", addr)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
	}()

	return errCh, nil
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
