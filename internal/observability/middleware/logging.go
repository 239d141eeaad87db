// Package middleware holds the HTTP middleware shared by every gateway route:
// request logging, request-id handling, and trace-context extraction.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// Logging logs one line per request with method, path, status, and duration.
// Message bodies and auth headers stay out of the logs: requests carry prompts
// and API keys, neither of which belongs in an access log.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		LogRequestHeaders:  []string{"Content-Type", "Anthropic-Version"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		// Panics are recovered by the dedicated Recovery middleware but
		// still show up in the request log.
		RecoverPanics: false,
	})
}

// SetLogAttrs attaches attributes to the current request's log line.
// Handlers use it to record the routed model without logging twice.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
