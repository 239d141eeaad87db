package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentBothForms(t *testing.T) {
	var plain MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"just text"`), &plain))
	assert.False(t, plain.IsList())
	assert.Equal(t, "just text", plain.Plain)

	var list MessageContent
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"text","text":"block"}]`), &list))
	assert.True(t, list.IsList())
	require.Len(t, list.Blocks, 1)
	assert.Equal(t, "block", list.Blocks[0].Text)

	// Each form round-trips to its original representation.
	out, err := json.Marshal(plain)
	require.NoError(t, err)
	assert.Equal(t, `"just text"`, string(out))

	out, err = json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"block"}]`, string(out))
}

func TestContentBlockVariants(t *testing.T) {
	var block ContentBlock
	require.NoError(t, json.Unmarshal([]byte(`{"type":"tool_use","id":"toolu_1","name":"f","input":{"x":1}}`), &block))
	assert.Equal(t, BlockTypeToolUse, block.Type)
	assert.Equal(t, "toolu_1", block.ID)
	assert.Equal(t, map[string]any{"x": float64(1)}, block.Input)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"tool_result","tool_use_id":"toolu_1","content":"42"}`), &block))
	assert.Equal(t, BlockTypeToolResult, block.Type)
	assert.Equal(t, json.RawMessage(`"42"`), block.Content)
}

func TestContentBlockUnknownTypePreserved(t *testing.T) {
	var block ContentBlock
	require.NoError(t, json.Unmarshal([]byte(`{"type":"document","weird":true}`), &block))
	assert.Equal(t, "document", block.Type)
}

func TestTextBlockMarshalAlwaysCarriesText(t *testing.T) {
	out, err := json.Marshal(NewTextBlock(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":""}`, string(out))
}

func TestToolUseBlockMarshalFillsEmptyInput(t *testing.T) {
	out, err := json.Marshal(ContentBlock{Type: BlockTypeToolUse, ID: "toolu_1", Name: "f"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_use","id":"toolu_1","name":"f","input":{}}`, string(out))
}

func TestSystemPromptForms(t *testing.T) {
	var s SystemPrompt
	require.NoError(t, json.Unmarshal([]byte(`"system text"`), &s))
	assert.False(t, s.IsZero())
	assert.Equal(t, "system text", s.Plain)

	var blocks SystemPrompt
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"text","text":"a"}]`), &blocks))
	assert.False(t, blocks.IsZero())
	require.Len(t, blocks.Blocks, 1)

	var zero SystemPrompt
	assert.True(t, zero.IsZero())
}
