package unified

import (
	"github.com/tidwall/gjson"
)

// ToolCallDelta is one incremental tool-call fragment inside a stream chunk.
// Index is the provider-local tool index; ID and Name are set only on the
// first fragment of a call. ArgumentsFragment is a raw partial-JSON piece and
// is not individually valid JSON.
type ToolCallDelta struct {
	Index             int
	ID                string
	Name              string
	ArgumentsFragment string
}

// ChunkView is the narrow accessor the streaming reassembler consumes.
// One implementation exists per backend chunk shape; the reassembler never
// inspects provider chunks directly.
type ChunkView interface {
	// TextDelta returns the chunk's text increment; ok is false when the
	// chunk carries no text.
	TextDelta() (string, bool)
	// ToolCallDeltas returns the chunk's tool-call fragments, nil when none.
	ToolCallDeltas() []ToolCallDelta
	// FinishReason returns the terminal reason; ok is false until the
	// provider signals completion.
	FinishReason() (string, bool)
	// CompletionTokens returns the output token count when the chunk carries
	// usage data.
	CompletionTokens() (int, bool)
}

// Chunk is a typed stream chunk in the unified delta shape. Useful for mock
// backends and providers whose SDK already yields structured chunks.
type Chunk struct {
	Text         *string
	ToolCalls    []ToolCallDelta
	Finish       *string
	OutputTokens *int
}

var _ ChunkView = Chunk{}

func (c Chunk) TextDelta() (string, bool) {
	if c.Text == nil {
		return "", false
	}
	return *c.Text, true
}

func (c Chunk) ToolCallDeltas() []ToolCallDelta { return c.ToolCalls }

func (c Chunk) FinishReason() (string, bool) {
	if c.Finish == nil {
		return "", false
	}
	return *c.Finish, true
}

func (c Chunk) CompletionTokens() (int, bool) {
	if c.OutputTokens == nil {
		return 0, false
	}
	return *c.OutputTokens, true
}

// RawChunk views an undecoded provider chunk (one SSE data payload) through
// gjson. Providers disagree on optional fields; missing paths simply read as
// absent instead of requiring per-provider structs.
type RawChunk struct {
	doc gjson.Result
}

var _ ChunkView = RawChunk{}

// ParseChunk wraps one raw JSON chunk payload.
func ParseChunk(data []byte) RawChunk {
	return RawChunk{doc: gjson.ParseBytes(data)}
}

func (c RawChunk) TextDelta() (string, bool) {
	content := c.doc.Get("choices.0.delta.content")
	if !content.Exists() || content.Type == gjson.Null {
		return "", false
	}
	return content.String(), true
}

func (c RawChunk) ToolCallDeltas() []ToolCallDelta {
	calls := c.doc.Get("choices.0.delta.tool_calls")
	if !calls.Exists() || !calls.IsArray() {
		return nil
	}
	var out []ToolCallDelta
	calls.ForEach(func(_, call gjson.Result) bool {
		out = append(out, ToolCallDelta{
			Index:             int(call.Get("index").Int()),
			ID:                call.Get("id").String(),
			Name:              call.Get("function.name").String(),
			ArgumentsFragment: call.Get("function.arguments").String(),
		})
		return true
	})
	return out
}

func (c RawChunk) FinishReason() (string, bool) {
	reason := c.doc.Get("choices.0.finish_reason")
	if !reason.Exists() || reason.Type == gjson.Null {
		return "", false
	}
	return reason.String(), true
}

func (c RawChunk) CompletionTokens() (int, bool) {
	tokens := c.doc.Get("usage.completion_tokens")
	if !tokens.Exists() || tokens.Type == gjson.Null {
		return 0, false
	}
	return int(tokens.Int()), true
}
