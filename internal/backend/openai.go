package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// Provider holds the connection settings for one upstream provider.
type Provider struct {
	// BaseURL is the OpenAI-compatible API root, e.g.
	// "https://api.openai.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
}

// HTTPBackend is the reference Completer. It resolves the provider from the
// routed model's prefix ("openai/", "gemini/", "github/", "anthropic/") and
// posts to that provider's chat completions endpoint.
type HTTPBackend struct {
	providers map[string]Provider
	client    *http.Client
}

var _ Completer = (*HTTPBackend)(nil)

// NewHTTPBackend creates a backend over the given provider table. A nil
// transport uses http.DefaultTransport. The client timeout stays 0 to allow
// long-running SSE streams; the server's write deadline bounds them.
func NewHTTPBackend(providers map[string]Provider, transport http.RoundTripper) *HTTPBackend {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPBackend{
		providers: providers,
		client:    &http.Client{Transport: transport},
	}
}

// Complete executes a non-streaming completion and returns the raw provider
// JSON for the response translator to view.
func (b *HTTPBackend) Complete(ctx context.Context, req unified.Request) (any, error) {
	req.Stream = false
	resp, err := b.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	return json.RawMessage(body), nil
}

// CompleteStreaming executes a streaming completion. Each SSE data payload is
// yielded as a raw chunk view; the upstream [DONE] marker ends the sequence.
func (b *HTTPBackend) CompleteStreaming(ctx context.Context, req unified.Request) (iter.Seq2[unified.ChunkView, error], error) {
	req.Stream = true
	resp, err := b.post(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	return func(yield func(unified.ChunkView, error) bool) {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			data, ok := bytes.CutPrefix(line, []byte("data: "))
			if !ok {
				continue
			}
			if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
				return
			}
			// Scanner reuses its buffer across lines.
			payload := bytes.Clone(data)
			if !yield(unified.ParseChunk(payload), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("read stream: %w", err))
		}
	}, nil
}

// post builds and sends the provider request. The routed prefix picks the
// provider; the wire body carries the bare model name and, for streams,
// stream_options so usage arrives in the final chunk.
func (b *HTTPBackend) post(ctx context.Context, req unified.Request) (*http.Response, error) {
	providerName, bareModel := splitTarget(req.Model)
	provider, ok := b.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("no provider configured for %q", providerName)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}
	if body, err = sjson.SetBytes(body, "model", bareModel); err != nil {
		return nil, fmt.Errorf("set wire model: %w", err)
	}
	if req.Stream {
		if body, err = sjson.SetBytes(body, "stream_options.include_usage", true); err != nil {
			return nil, fmt.Errorf("set stream options: %w", err)
		}
	}

	url := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider %s: %w", providerName, err)
	}
	return resp, nil
}

// splitTarget separates a routed model id into provider name and bare model.
// Unprefixed models default to the anthropic provider, matching the router's
// pass-through behavior for unknown claude models.
func splitTarget(model string) (provider, bare string) {
	if name, rest, ok := strings.Cut(model, "/"); ok {
		return name, rest
	}
	return "anthropic", model
}

// UpstreamError is a non-200 provider response. It is the backend's own
// failure surface; translation-core errors never wrap it.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}
