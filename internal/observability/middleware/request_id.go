package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDContextKey keys the request ID in a request context.
type RequestIDContextKey struct{}

// requestID returns the client-supplied X-Request-ID, a previously stored
// ID, or a fresh UUID.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if id, ok := r.Context().Value(RequestIDContextKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// RequestIDGeneration ensures every request carries an ID in its context.
// Coding clients usually send their own X-Request-ID; those are kept so a
// failed completion can be matched against the client's logs.
func RequestIDGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), RequestIDContextKey{}, requestID(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDPropagation echoes the request ID back in the X-Request-ID
// response header and stamps it on the request log line.
func RequestIDPropagation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := r.Context().Value(RequestIDContextKey{}).(string); ok && id != "" {
			// Header is set before the handler runs so it survives
			// panics recovered further down the chain.
			w.Header().Set("X-Request-ID", id)

			SetLogAttrs(r.Context(), slog.String("request_id", id))
		}

		next.ServeHTTP(w, r)
	})
}
