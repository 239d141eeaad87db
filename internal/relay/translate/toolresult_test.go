package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolResultTextString(t *testing.T) {
	assert.Equal(t, "42", ToolResultText(json.RawMessage(`"42"`)))
}

func TestToolResultTextEmpty(t *testing.T) {
	assert.Equal(t, "No content provided", ToolResultText(nil))
	assert.Equal(t, "No content provided", ToolResultText(json.RawMessage(`null`)))
}

func TestToolResultTextBlockList(t *testing.T) {
	payload := json.RawMessage(`[
		{"type":"text","text":"first line"},
		{"type":"text","text":"second line"},
		"bare string"
	]`)
	assert.Equal(t, "first line\nsecond line\nbare string", ToolResultText(payload))
}

func TestToolResultTextTypedObject(t *testing.T) {
	assert.Equal(t, "inner", ToolResultText(json.RawMessage(`{"type":"text","text":"inner"}`)))
}

func TestToolResultTextArbitraryObject(t *testing.T) {
	out := ToolResultText(json.RawMessage(`{"status":"ok","count":3}`))
	assert.JSONEq(t, `{"status":"ok","count":3}`, out)
}

func TestToolResultTextUnparseable(t *testing.T) {
	assert.Equal(t, `not json`, ToolResultText(json.RawMessage(`not json`)))
}

func TestToolResultBlocks(t *testing.T) {
	blocks := toolResultBlocks(json.RawMessage(`"plain"`))
	assert.Equal(t, []any{map[string]any{"type": "text", "text": "plain"}}, blocks)

	blocks = toolResultBlocks(json.RawMessage(`[{"type":"text","text":"kept"}]`))
	assert.Len(t, blocks, 1)

	blocks = toolResultBlocks(nil)
	assert.Equal(t, []any{map[string]any{"type": "text", "text": ""}}, blocks)
}
