package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/relay"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// FromUnified converts a backend completion response into an Anthropic
// MessagesResponse. The backend may hand over a typed unified.Response or raw
// provider JSON; both go through unified.ViewResponse.
//
// This function never fails: any conversion error is rendered as a valid
// fallback response whose text explains the problem, with stop_reason
// end_turn and zeroed usage.
func FromUnified(ctx context.Context, backendResp any, decision relay.Decision) anthropic.MessagesResponse {
	resp, err := fromUnified(backendResp, decision)
	if err != nil {
		slog.ErrorContext(ctx, "response conversion failed", "error", err, "model", decision.Target)
		return fallbackResponse(decision, err)
	}
	return resp
}

func fromUnified(backendResp any, decision relay.Decision) (anthropic.MessagesResponse, error) {
	view, err := unified.ViewResponse(backendResp)
	if err != nil {
		return anthropic.MessagesResponse{}, &ConversionError{Stage: "response view", Err: err}
	}

	var content []anthropic.ContentBlock

	if text, ok := view.Text(); ok && text != "" {
		content = append(content, anthropic.NewTextBlock(text))
	}

	toolCalls := view.ToolCalls()
	switch {
	case len(toolCalls) > 0 && relay.IsClaudeModel(decision.Target):
		for _, call := range toolCalls {
			content = append(content, toolUseBlock(call))
		}
	case len(toolCalls) > 0:
		// The output contract restricts content to text and tool_use, and
		// non-Claude targets have no native tool_use representation here, so
		// calls are rendered as descriptive text on the text block.
		toolText := renderToolCallsAsText(toolCalls)
		if len(content) > 0 && content[0].Type == anthropic.BlockTypeText {
			content[0].Text += toolText
		} else {
			content = append(content, anthropic.NewTextBlock(toolText))
		}
	}

	// Content must never be empty.
	if len(content) == 0 {
		content = append(content, anthropic.NewTextBlock(""))
	}

	id := view.ID()
	if id == "" {
		id = newMessageID()
	}

	return anthropic.MessagesResponse{
		ID:         id,
		Type:       "message",
		Role:       anthropic.RoleAssistant,
		Model:      decision.Original,
		Content:    content,
		StopReason: StopReason(view.FinishReason()),
		Usage: anthropic.Usage{
			InputTokens:  view.PromptTokens(),
			OutputTokens: view.CompletionTokens(),
		},
	}, nil
}

// StopReason maps a unified finish reason to an Anthropic stop reason.
// Unknown reasons default to end_turn.
func StopReason(finishReason string) string {
	switch finishReason {
	case "length":
		return anthropic.StopReasonMaxTokens
	case "tool_calls":
		return anthropic.StopReasonToolUse
	default:
		return anthropic.StopReasonEndTurn
	}
}

// toolUseBlock converts one tool call into a native tool_use block. Malformed
// argument JSON is preserved under a "raw" key rather than dropped.
func toolUseBlock(call unified.ToolCall) anthropic.ContentBlock {
	id := call.ID
	if id == "" {
		id = newToolUseID()
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil || input == nil {
		input = map[string]any{"raw": call.Function.Arguments}
	}
	return anthropic.NewToolUseBlock(id, call.Function.Name, input)
}

func renderToolCallsAsText(calls []unified.ToolCall) string {
	var sb strings.Builder
	sb.WriteString("\n\nTool usage:\n")
	for _, call := range calls {
		args := call.Function.Arguments
		var parsed any
		if err := json.Unmarshal([]byte(args), &parsed); err == nil {
			if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
				args = string(pretty)
			}
		}
		fmt.Fprintf(&sb, "Tool: %s\nArguments: %s\n\n", call.Function.Name, args)
	}
	return sb.String()
}

// fallbackResponse is the best-effort response emitted when conversion fails.
// Favoring client parseability over status signaling, it is a normally shaped
// message whose text communicates the problem.
func fallbackResponse(decision relay.Decision, err error) anthropic.MessagesResponse {
	return anthropic.MessagesResponse{
		ID:         newMessageID(),
		Type:       "message",
		Role:       anthropic.RoleAssistant,
		Model:      decision.Original,
		Content:    []anthropic.ContentBlock{anthropic.NewTextBlock(fmt.Sprintf("Error converting response: %v. Please check server logs.", err))},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{},
	}
}

// newMessageID generates an Anthropic-style message id.
func newMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}

// newToolUseID generates an Anthropic-style tool_use id.
func newToolUseID() string {
	return "toolu_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}
