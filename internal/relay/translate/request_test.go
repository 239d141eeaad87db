package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

func TestToUnifiedBasics(t *testing.T) {
	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1-mini",
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hello")},
		},
	}

	out := ToUnified(req)

	assert.Equal(t, "openai/gpt-4.1-mini", out.Model)
	assert.Equal(t, 1024, out.MaxTokens)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, unified.Message{Role: "user", Content: "hello"}, out.Messages[0])
	assert.Nil(t, out.Thinking)
}

func TestToUnifiedSystemString(t *testing.T) {
	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100,
		System:    anthropic.SystemPrompt{Plain: "be terse"},
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
		},
	}

	out := ToUnified(req)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, unified.Message{Role: "system", Content: "be terse"}, out.Messages[0])
}

func TestToUnifiedSystemBlocksJoined(t *testing.T) {
	var system anthropic.SystemPrompt
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"text","text":"first"},
		{"type":"text","text":"second"}
	]`), &system))

	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100,
		System:    system,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
		},
	}

	out := ToUnified(req)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, "first\n\nsecond", out.Messages[0].Content)
}

func TestToUnifiedToolResultTurnIsLiteral(t *testing.T) {
	// A user turn consisting only of a tool_result becomes the bare output
	// with no explanatory framing.
	var content anthropic.MessageContent
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"tool_result","tool_use_id":"toolu_01","content":"42"}
	]`), &content))

	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: content},
		},
	}

	out := ToUnified(req)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "42", out.Messages[0].Content)
}

func TestToUnifiedToolResultBlockList(t *testing.T) {
	var content anthropic.MessageContent
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"text","text":"results follow"},
		{"type":"tool_result","tool_use_id":"toolu_01","content":[
			{"type":"text","text":"line one"},
			{"type":"text","text":"line two"}
		]}
	]`), &content))

	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: content},
		},
	}

	out := ToUnified(req)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "results follow\nline one\nline two", out.Messages[0].Content)
}

func TestToUnifiedMixedContentProjected(t *testing.T) {
	var content anthropic.MessageContent
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"text","text":"look at this"},
		{"type":"image","source":{"type":"base64","media_type":"image/png","data":"aaa"}}
	]`), &content))

	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: content},
		},
	}

	out := ToUnified(req)

	require.Len(t, out.Messages, 1)
	blocks, ok := out.Messages[0].Content.([]any)
	require.True(t, ok)
	require.Len(t, blocks, 2)
	assert.Equal(t, map[string]any{"type": "text", "text": "look at this"}, blocks[0])
}

func TestToUnifiedMaxTokensCap(t *testing.T) {
	req := &anthropic.MessagesRequest{
		Model:     "openai/gpt-4.1",
		MaxTokens: 100000,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
		},
	}

	assert.Equal(t, maxTokensCap, ToUnified(req).MaxTokens)

	// Anthropic targets keep the requested budget.
	req.Model = "anthropic/claude-opus-4-20250514"
	assert.Equal(t, 100000, ToUnified(req).MaxTokens)

	// Unprefixed pass-through targets keep it as well.
	req.Model = "some-unknown-model"
	assert.Equal(t, 100000, ToUnified(req).MaxTokens)
}

func TestToUnifiedThinkingOnlyForAnthropic(t *testing.T) {
	req := &anthropic.MessagesRequest{
		Model:     "anthropic/claude-opus-4-20250514",
		MaxTokens: 100,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
		},
	}

	out := ToUnified(req)
	require.NotNil(t, out.Thinking)
	thinking, ok := out.Thinking.(*anthropic.ThinkingConfig)
	require.True(t, ok)
	assert.True(t, thinking.Enabled)

	req.Thinking = &anthropic.ThinkingConfig{Type: "enabled", BudgetTokens: 2048}
	out = ToUnified(req)
	assert.Equal(t, req.Thinking, out.Thinking)

	req.Model = "openai/gpt-4.1"
	assert.Nil(t, ToUnified(req).Thinking)

	// Unprefixed claude pass-through targets are Anthropic-family too.
	req.Thinking = nil
	req.Model = "claude-opus-4-20250514"
	require.NotNil(t, ToUnified(req).Thinking)

	req.Model = "some-unknown-model"
	assert.Nil(t, ToUnified(req).Thinking)
}

func TestToUnifiedToolChoice(t *testing.T) {
	base := func() *anthropic.MessagesRequest {
		return &anthropic.MessagesRequest{
			Model:     "openai/gpt-4.1",
			MaxTokens: 100,
			Messages: []anthropic.Message{
				{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
			},
		}
	}

	req := base()
	req.ToolChoice = &anthropic.ToolChoice{Type: "auto"}
	assert.Equal(t, "auto", ToUnified(req).ToolChoice)

	req = base()
	req.ToolChoice = &anthropic.ToolChoice{Type: "any"}
	assert.Equal(t, "any", ToUnified(req).ToolChoice)

	req = base()
	req.ToolChoice = &anthropic.ToolChoice{Type: "tool", Name: "get_weather"}
	named, ok := ToUnified(req).ToolChoice.(unified.NamedToolChoice)
	require.True(t, ok)
	assert.Equal(t, "function", named.Type)
	assert.Equal(t, "get_weather", named.Function.Name)

	req = base()
	req.ToolChoice = &anthropic.ToolChoice{Type: "bogus"}
	assert.Equal(t, "auto", ToUnified(req).ToolChoice)
}

func TestToUnifiedToolsCleanedForGemini(t *testing.T) {
	tools := []anthropic.Tool{{
		Name: "lookup",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"q": map[string]any{"type": "string", "format": "uri"},
			},
		},
	}}

	req := &anthropic.MessagesRequest{
		Model:     "gemini/gemini-2.0-flash",
		MaxTokens: 100,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: anthropic.TextContent("hi")},
		},
		Tools: tools,
	}

	out := ToUnified(req)
	require.Len(t, out.Tools, 1)
	schema := out.Tools[0].Function.Parameters
	assert.NotContains(t, schema, "additionalProperties")
	q := schema["properties"].(map[string]any)["q"].(map[string]any)
	assert.NotContains(t, q, "format")

	// The caller's schema is not mutated.
	assert.Contains(t, tools[0].InputSchema, "additionalProperties")

	// Non-Gemini targets receive the schema untouched.
	req.Model = "openai/gpt-4.1"
	out = ToUnified(req)
	assert.Contains(t, out.Tools[0].Function.Parameters, "additionalProperties")
}
