package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tiktoken-go/tokenizer"

	"github.com/modelrelay/modelrelay/internal/anthropic"
)

// CountTokensHandler estimates the input token count of a Messages request.
// Counts are computed locally with a BPE tokenizer rather than proxied
// upstream; exactness varies by target model, so the result is an estimate.
type CountTokensHandler struct {
	Validate *validator.Validate

	codec tokenizer.Codec
}

// NewCountTokensHandler builds the handler, loading the tokenizer once.
// A nil codec falls back to a bytes/4 heuristic at request time.
func NewCountTokensHandler(validate *validator.Validate) *CountTokensHandler {
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		slog.Warn("tokenizer unavailable, falling back to byte heuristic", "error", err)
		codec = nil
	}
	return &CountTokensHandler{Validate: validate, codec: codec}
}

var _ http.Handler = (*CountTokensHandler)(nil)

func (h *CountTokensHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req anthropic.CountTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
				"request_too_large", http.StatusText(http.StatusRequestEntityTooLarge)))
			return
		}
		writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
			"invalid_request_error", "malformed request body"))
		return
	}

	if err := h.Validate.StructCtx(ctx, &req); err != nil {
		writeJSONAnthropicError(ctx, w, anthropic.NewErrorResponse(
			"invalid_request_error", err.Error()))
		return
	}

	writeJSON(ctx, w, anthropic.CountTokensResponse{
		InputTokens: h.count(ctx, &req),
	}, http.StatusOK)
}

// count tokenizes every text surface of the request: the system prompt,
// message text blocks, and the serialized parts of tool definitions.
func (h *CountTokensHandler) count(ctx context.Context, req *anthropic.CountTokensRequest) int {
	var sb strings.Builder

	if !req.System.IsZero() {
		sb.WriteString(req.System.Plain)
		for _, block := range req.System.Blocks {
			sb.WriteString(block.Text)
		}
		sb.WriteString("\n")
	}

	for _, msg := range req.Messages {
		if !msg.Content.IsList() {
			sb.WriteString(msg.Content.Plain)
			sb.WriteString("\n")
			continue
		}
		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case anthropic.BlockTypeText:
				sb.WriteString(block.Text)
			case anthropic.BlockTypeToolUse:
				sb.WriteString(block.Name)
				if input, err := json.Marshal(block.Input); err == nil {
					sb.Write(input)
				}
			case anthropic.BlockTypeToolResult:
				sb.Write(block.Content)
			}
			sb.WriteString("\n")
		}
	}

	for _, tool := range req.Tools {
		sb.WriteString(tool.Name)
		sb.WriteString(tool.Description)
		if schema, err := json.Marshal(tool.InputSchema); err == nil {
			sb.Write(schema)
		}
		sb.WriteString("\n")
	}

	text := sb.String()

	if h.codec != nil {
		ids, _, err := h.codec.Encode(text)
		if err == nil {
			return len(ids)
		}
		slog.WarnContext(ctx, "tokenization failed, falling back to byte heuristic", "error", err)
	}

	// Rough heuristic: one token per four bytes of text.
	return len(text) / 4
}
