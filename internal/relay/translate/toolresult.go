package translate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// fallbackToolResult stands in for payloads that cannot be interpreted at all.
const fallbackToolResult = "No content provided"

// ToolResultText flattens an arbitrary tool_result payload into plain text:
// strings pass through, block lists are joined line by line, text-typed
// objects yield their text, and anything else is serialized as JSON. The
// result is handed to providers that expect the tool output as the literal
// next turn, without explanatory prose around it.
func ToolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return fallbackToolResult
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Unparseable payloads degrade to their raw bytes.
		return string(raw)
	}
	return flattenToolResult(payload)
}

func flattenToolResult(payload any) string {
	switch v := payload.(type) {
	case nil:
		return fallbackToolResult
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, item := range v {
			sb.WriteString(flattenToolResultItem(item))
			sb.WriteString("\n")
		}
		return strings.TrimSpace(sb.String())
	case map[string]any:
		if v["type"] == "text" {
			text, _ := v["text"].(string)
			return text
		}
		return jsonOrSprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func flattenToolResultItem(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
		return jsonOrSprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func jsonOrSprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// toolResultBlocks normalizes a tool_result payload into a list of sub-block
// maps for the mixed-content projection: strings become one text block, block
// lists are kept, and anything else is flattened to text.
func toolResultBlocks(raw json.RawMessage) []any {
	empty := []any{map[string]any{"type": "text", "text": ""}}
	if len(raw) == 0 {
		return empty
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return []any{map[string]any{"type": "text", "text": string(raw)}}
	}
	switch v := payload.(type) {
	case nil:
		return empty
	case string:
		return []any{map[string]any{"type": "text", "text": v}}
	case []any:
		return v
	default:
		return []any{map[string]any{"type": "text", "text": flattenToolResult(payload)}}
	}
}
