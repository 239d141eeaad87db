package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/backend"
	"github.com/modelrelay/modelrelay/internal/observability/middleware"
	"github.com/modelrelay/modelrelay/internal/relay"
	"github.com/modelrelay/modelrelay/internal/relay/translate"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// MessagesHandler handles Anthropic Messages API requests, translating them
// to the unified completion protocol, dispatching to the routed backend, and
// translating the result back. Streaming requests are reassembled into
// Anthropic SSE framing.
type MessagesHandler struct {
	Routing  relay.Routing
	Backend  backend.Completer
	Validate *validator.Validate
}

// Compile-time check that MessagesHandler implements http.Handler
var _ http.Handler = (*MessagesHandler)(nil)

// ServeHTTP implements http.Handler for streaming and non-streaming requests.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req anthropic.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
				"request_too_large", http.StatusText(http.StatusRequestEntityTooLarge)))
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
			"invalid_request_error", "malformed request body"))
		return
	}

	if err := h.Validate.StructCtx(ctx, &req); err != nil {
		slog.WarnContext(ctx, "request failed validation", "error", err)
		writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
			"invalid_request_error", err.Error()))
		return
	}

	decision := relay.Route(ctx, req.Model, h.Routing)
	req.Model = decision.Target

	middleware.SetLogAttrs(ctx,
		slog.String("model", decision.Original),
		slog.String("target", decision.Target),
		slog.Bool("stream", req.Stream),
	)

	unifiedReq := translate.ToUnified(&req)

	if req.Stream {
		h.streamResponse(ctx, w, unifiedReq, decision)
	} else {
		h.writeResponse(ctx, w, unifiedReq, decision)
	}
}

// writeResponse handles non-streaming requests.
func (h *MessagesHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req unified.Request,
	decision relay.Decision,
) {
	if ctx.Err() != nil {
		return
	}
	backendResp, err := h.Backend.Complete(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err, "target", decision.Target)
		writeJSONAnthropicError(ctx, w, upstreamError(err))
		return
	}

	writeJSON(ctx, w, translate.FromUnified(ctx, backendResp, decision), http.StatusOK)
}

// streamResponse drives the stream reassembler over the backend chunk
// sequence and writes the resulting event sequence to the client via SSE.
func (h *MessagesHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req unified.Request,
	decision relay.Decision,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Backend.CompleteStreaming(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err, "target", decision.Target)
		writeJSONAnthropicError(ctx, w, upstreamError(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
			"api_error", http.StatusText(http.StatusInternalServerError)))
		return
	}

	reassembler := translate.NewReassembler(decision)
	if writeEvents(ctx, sse, reassembler.Start()) != nil {
		return
	}

	for chunk, err := range stream {
		// Check for client disconnect before processing the chunk.
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			_ = writeEvents(ctx, sse, reassembler.Fail(ctx, err))
			return
		}

		if writeEvents(ctx, sse, reassembler.Next(ctx, chunk)) != nil {
			return
		}
		if reassembler.Done() {
			break
		}
	}

	// Backends may end the chunk sequence without a finish_reason; the
	// client still gets a fully terminated stream.
	if !reassembler.Done() {
		_ = writeEvents(ctx, sse, reassembler.Finalize())
	}
}

// writeEvents writes a batch of reassembler events to the SSE stream.
func writeEvents(ctx context.Context, sse *SSEWriter, events []translate.Event) error {
	for _, ev := range events {
		if ev.Name == "" {
			if raw, ok := ev.Data.(string); ok {
				if err := sse.WriteRaw(raw); err != nil {
					slog.ErrorContext(ctx, "failed to write stream termination marker", "error", err)
					return err
				}
			}
			continue
		}
		if err := sse.WriteEvent(ev.Name); err != nil {
			slog.ErrorContext(ctx, "failed to write event", "error", err, "event", ev.Name)
			return err
		}
		if err := sse.WriteData(ev.Data); err != nil {
			slog.ErrorContext(ctx, "failed to write event data", "error", err, "event", ev.Name)
			return err
		}
	}
	return nil
}

// upstreamError converts a backend failure into an Anthropic error envelope.
func upstreamError(err error) *anthropic.ErrorResponse {
	var upErr *backend.UpstreamError
	if errors.As(err, &upErr) {
		return anthropic.NewErrorResponse(upstreamErrorType(upErr.Status), upErr.Body)
	}
	return anthropic.NewErrorResponse("api_error", http.StatusText(http.StatusInternalServerError))
}
