package proxy

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/backend"
	"github.com/modelrelay/modelrelay/internal/relay"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// mockBackend records the unified request it receives and plays back a
// scripted response or chunk sequence.
type mockBackend struct {
	lastRequest unified.Request

	response any
	chunks   []unified.ChunkView
	err      error
}

var _ backend.Completer = (*mockBackend)(nil)

func (m *mockBackend) Complete(_ context.Context, req unified.Request) (any, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockBackend) CompleteStreaming(_ context.Context, req unified.Request) (iter.Seq2[unified.ChunkView, error], error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return func(yield func(unified.ChunkView, error) bool) {
		for _, chunk := range m.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}, nil
}

type alwaysReady struct{}

func (alwaysReady) IsReady() bool { return true }

func newTestProxy(t *testing.T, b backend.Completer) http.Handler {
	t.Helper()
	p, err := New(Options{
		Routing: relay.Routing{
			PreferredProvider: "openai",
			BigModel:          "gpt-4.1",
			SmallModel:        "gpt-4.1-mini",
			OpenAIModels:      []string{"gpt-4.1", "gpt-4.1-mini"},
		},
		Backend:       b,
		Readiness:     alwaysReady{},
		MaxBodyBytes:  1 << 20,
		ProviderNames: []string{"openai"},
	})
	require.NoError(t, err)
	return p.Handler()
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestMessagesNonStreaming(t *testing.T) {
	content := "routed reply"
	b := &mockBackend{
		response: &unified.Response{
			ID: "chatcmpl-1",
			Choices: []unified.Choice{{
				Message:      unified.ResponseMessage{Role: "assistant", Content: &content},
				FinishReason: "stop",
			}},
			Usage: unified.Usage{PromptTokens: 10, CompletionTokens: 4},
		},
	}
	handler := newTestProxy(t, b)

	w := postJSON(t, handler, "/v1/messages", `{
		"model": "claude-3-5-haiku-20241022",
		"max_tokens": 256,
		"messages": [{"role": "user", "content": "hello"}]
	}`)

	require.Equal(t, http.StatusOK, w.Code)

	// The alias routed to the small model on the preferred provider.
	assert.Equal(t, "openai/gpt-4.1-mini", b.lastRequest.Model)
	assert.Equal(t, 256, b.lastRequest.MaxTokens)

	var resp anthropic.MessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// The response echoes the client's original model string.
	assert.Equal(t, "claude-3-5-haiku-20241022", resp.Model)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "routed reply", resp.Content[0].Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
}

func TestMessagesValidation(t *testing.T) {
	handler := newTestProxy(t, &mockBackend{})

	// Missing messages.
	w := postJSON(t, handler, "/v1/messages", `{"model":"gpt-4.1","max_tokens":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp anthropic.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "error", errResp.Type)
	assert.Equal(t, "invalid_request_error", errResp.Err.Type)

	// Malformed JSON.
	w = postJSON(t, handler, "/v1/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessagesUpstreamErrorMapped(t *testing.T) {
	b := &mockBackend{err: &backend.UpstreamError{Status: http.StatusTooManyRequests, Body: "slow down"}}
	handler := newTestProxy(t, b)

	w := postJSON(t, handler, "/v1/messages", `{
		"model": "gpt-4.1",
		"max_tokens": 10,
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var errResp anthropic.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "rate_limit_error", errResp.Err.Type)
	assert.Equal(t, "slow down", errResp.Err.Message)
}

func TestMessagesStreaming(t *testing.T) {
	text1, text2 := "Hel", "lo"
	finish := "stop"
	b := &mockBackend{chunks: []unified.ChunkView{
		unified.Chunk{Text: &text1},
		unified.Chunk{Text: &text2},
		unified.Chunk{Finish: &finish},
	}}
	handler := newTestProxy(t, b)

	w := postJSON(t, handler, "/v1/messages", `{
		"model": "claude-sonnet-4-20250514",
		"max_tokens": 100,
		"stream": true,
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, b.lastRequest.Stream)

	body := w.Body.String()
	var eventNames []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			eventNames = append(eventNames, name)
		}
	}
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"ping",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, eventNames)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
	assert.Contains(t, body, `"text":"Hel"`)
}

func TestMessagesStreamingWithoutFinishTerminates(t *testing.T) {
	text := "partial"
	b := &mockBackend{chunks: []unified.ChunkView{unified.Chunk{Text: &text}}}
	handler := newTestProxy(t, b)

	w := postJSON(t, handler, "/v1/messages", `{
		"model": "gpt-4.1",
		"max_tokens": 100,
		"stream": true,
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	body := w.Body.String()
	assert.Contains(t, body, "event: message_stop")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
}

func TestCountTokens(t *testing.T) {
	handler := newTestProxy(t, &mockBackend{})

	w := postJSON(t, handler, "/v1/messages/count_tokens", `{
		"model": "claude-3-5-haiku-20241022",
		"messages": [{"role": "user", "content": "the quick brown fox jumps over the lazy dog"}]
	}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp anthropic.CountTokensResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.InputTokens, 0)
}

func TestStatus(t *testing.T) {
	handler := newTestProxy(t, &mockBackend{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "gpt-4.1", status["big_model"])
	assert.Equal(t, "gpt-4.1-mini", status["small_model"])
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestProxy(t, &mockBackend{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	b := &mockBackend{}
	p, err := New(Options{
		Routing:      relay.Routing{PreferredProvider: "openai", BigModel: "gpt-4.1", SmallModel: "gpt-4.1-mini"},
		Backend:      b,
		Readiness:    alwaysReady{},
		MaxBodyBytes: 64,
	})
	require.NoError(t, err)

	body := `{"model":"gpt-4.1","max_tokens":10,"messages":[{"role":"user","content":"` +
		strings.Repeat("x", 200) + `"}]}`
	w := postJSON(t, p.Handler(), "/v1/messages", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var errResp anthropic.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "request_too_large", errResp.Err.Type)
}
