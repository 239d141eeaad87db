package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/modelrelay/modelrelay/internal/anthropic"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONAnthropicError writes an Anthropic-style error envelope with the
// HTTP status matching the error type per Anthropic API conventions.
func writeJSONAnthropicError(ctx context.Context, w http.ResponseWriter, errResp *anthropic.ErrorResponse) {
	var status int
	switch errResp.Err.Type {
	case "invalid_request_error":
		status = http.StatusBadRequest
	case "authentication_error":
		status = http.StatusUnauthorized
	case "permission_error":
		status = http.StatusForbidden
	case "not_found_error":
		status = http.StatusNotFound
	case "request_too_large":
		status = http.StatusRequestEntityTooLarge
	case "rate_limit_error":
		status = http.StatusTooManyRequests
	case "overloaded_error":
		status = 529
	case "api_error":
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(ctx, w, errResp, status)
}

// upstreamErrorType maps an upstream HTTP status onto an Anthropic error type
// so provider failures surface to the client in the inbound protocol's shape.
func upstreamErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusForbidden:
		return "permission_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusServiceUnavailable, 529:
		return "overloaded_error"
	default:
		return "api_error"
	}
}
