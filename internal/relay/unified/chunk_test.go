package unified

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawChunkText(t *testing.T) {
	chunk := ParseChunk([]byte(`{"choices":[{"delta":{"content":"hi"},"finish_reason":null}]}`))

	text, ok := chunk.TextDelta()
	assert.True(t, ok)
	assert.Equal(t, "hi", text)

	_, ok = chunk.FinishReason()
	assert.False(t, ok)
	assert.Nil(t, chunk.ToolCallDeltas())
}

func TestRawChunkNullContent(t *testing.T) {
	chunk := ParseChunk([]byte(`{"choices":[{"delta":{"content":null}}]}`))
	_, ok := chunk.TextDelta()
	assert.False(t, ok)
}

func TestRawChunkToolCalls(t *testing.T) {
	chunk := ParseChunk([]byte(`{"choices":[{"delta":{"tool_calls":[
		{"index":0,"id":"call_1","function":{"name":"get_weather","arguments":"{\"ci"}},
		{"index":1,"function":{"arguments":"ty\""}}
	]}}]}`))

	deltas := chunk.ToolCallDeltas()
	require.Len(t, deltas, 2)
	assert.Equal(t, ToolCallDelta{Index: 0, ID: "call_1", Name: "get_weather", ArgumentsFragment: `{"ci`}, deltas[0])
	assert.Equal(t, ToolCallDelta{Index: 1, ArgumentsFragment: `ty"`}, deltas[1])
}

func TestRawChunkFinishAndUsage(t *testing.T) {
	chunk := ParseChunk([]byte(`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"completion_tokens":9}}`))

	reason, ok := chunk.FinishReason()
	assert.True(t, ok)
	assert.Equal(t, "stop", reason)

	tokens, ok := chunk.CompletionTokens()
	assert.True(t, ok)
	assert.Equal(t, 9, tokens)
}

func TestRawChunkEmpty(t *testing.T) {
	chunk := ParseChunk([]byte(`{}`))
	_, ok := chunk.TextDelta()
	assert.False(t, ok)
	_, ok = chunk.FinishReason()
	assert.False(t, ok)
	_, ok = chunk.CompletionTokens()
	assert.False(t, ok)
}

func TestTypedChunk(t *testing.T) {
	text := "hello"
	finish := "stop"
	tokens := 3
	chunk := Chunk{Text: &text, Finish: &finish, OutputTokens: &tokens}

	got, ok := chunk.TextDelta()
	assert.True(t, ok)
	assert.Equal(t, "hello", got)

	reason, ok := chunk.FinishReason()
	assert.True(t, ok)
	assert.Equal(t, "stop", reason)

	n, ok := chunk.CompletionTokens()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	var empty Chunk
	_, ok = empty.TextDelta()
	assert.False(t, ok)
}
