package translate

import (
	"strings"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/relay"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// maxTokensCap is the completion-token ceiling for non-Anthropic targets.
const maxTokensCap = 16384

// ToUnified converts a routed Anthropic request into a unified completion
// request. The request's Model field must already hold the routing target.
func ToUnified(req *anthropic.MessagesRequest) unified.Request {
	target := req.Model
	out := unified.Request{
		Model:       target,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if system := systemText(req.System); system != "" {
		out.Messages = append(out.Messages, unified.Message{Role: "system", Content: system})
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, translateMessage(msg))
	}

	// Non-Anthropic backends reject completion budgets beyond their own
	// ceiling, so the requested max_tokens is capped for them.
	if isPrefixedNonAnthropic(target) && out.MaxTokens > maxTokensCap {
		out.MaxTokens = maxTokensCap
	}

	// The thinking field is understood by Anthropic only; other providers
	// reject unknown request fields. Unprefixed claude pass-through targets
	// count as Anthropic here.
	if relay.IsAnthropicTarget(target) {
		if req.Thinking != nil {
			out.Thinking = req.Thinking
		} else {
			out.Thinking = &anthropic.ThinkingConfig{Enabled: true}
		}
	}

	if len(req.Tools) > 0 {
		out.Tools = translateTools(req.Tools, strings.HasPrefix(target, relay.PrefixGemini))
	}

	if req.ToolChoice != nil {
		out.ToolChoice = translateToolChoice(req.ToolChoice)
	}

	return out
}

// systemText collapses the system field into a single string; list blocks are
// joined with a blank line.
func systemText(system anthropic.SystemPrompt) string {
	if system.IsZero() {
		return ""
	}
	if len(system.Blocks) == 0 {
		return system.Plain
	}
	var parts []string
	for _, block := range system.Blocks {
		if block.Type == anthropic.BlockTypeText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func translateMessage(msg anthropic.Message) unified.Message {
	if !msg.Content.IsList() {
		return unified.Message{Role: msg.Role, Content: msg.Content.Plain}
	}

	if msg.Role == anthropic.RoleUser && containsToolResult(msg.Content.Blocks) {
		return unified.Message{Role: msg.Role, Content: toolResultTurn(msg.Content.Blocks)}
	}

	blocks := make([]any, 0, len(msg.Content.Blocks))
	for _, block := range msg.Content.Blocks {
		if projected, ok := projectBlock(block); ok {
			blocks = append(blocks, projected)
		}
	}
	return unified.Message{Role: msg.Role, Content: blocks}
}

func containsToolResult(blocks []anthropic.ContentBlock) bool {
	for _, block := range blocks {
		if block.Type == anthropic.BlockTypeToolResult {
			return true
		}
	}
	return false
}

// toolResultTurn renders a user turn carrying tool results as the literal
// tool output. Providers following the OpenAI convention expect the result as
// the plain next turn; wrapping it in explanatory prose confuses them.
// A single result passes through untouched; several are joined line by line
// together with any interleaved text blocks.
func toolResultTurn(blocks []anthropic.ContentBlock) string {
	var results []string
	for _, block := range blocks {
		switch block.Type {
		case anthropic.BlockTypeText:
			if block.Text != "" {
				results = append(results, block.Text)
			}
		case anthropic.BlockTypeToolResult:
			results = append(results, ToolResultText(block.Content))
		}
	}
	return strings.TrimSpace(strings.Join(results, "\n"))
}

// projectBlock converts one content block for the mixed-content path.
// Unknown block types are dropped.
func projectBlock(block anthropic.ContentBlock) (map[string]any, bool) {
	switch block.Type {
	case anthropic.BlockTypeText:
		return map[string]any{"type": "text", "text": block.Text}, true
	case anthropic.BlockTypeImage:
		return map[string]any{"type": "image", "source": block.Source}, true
	case anthropic.BlockTypeToolUse:
		return map[string]any{
			"type":  "tool_use",
			"id":    block.ID,
			"name":  block.Name,
			"input": block.Input,
		}, true
	case anthropic.BlockTypeToolResult:
		return map[string]any{
			"type":        "tool_result",
			"tool_use_id": block.ToolUseID,
			"content":     toolResultBlocks(block.Content),
		}, true
	default:
		return nil, false
	}
}

func translateTools(tools []anthropic.Tool, cleanForGemini bool) []unified.Tool {
	out := make([]unified.Tool, 0, len(tools))
	for _, tool := range tools {
		schema := tool.InputSchema
		if cleanForGemini {
			if cleaned, ok := CleanGeminiSchema(schema).(map[string]any); ok {
				schema = cleaned
			}
		}
		out = append(out, unified.Tool{
			Type: "function",
			Function: unified.FunctionSchema{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schema,
			},
		})
	}
	return out
}

// translateToolChoice maps Anthropic tool_choice to the unified shape.
// Unrecognized values default to auto.
func translateToolChoice(choice *anthropic.ToolChoice) any {
	switch choice.Type {
	case "auto":
		return "auto"
	case "any":
		return "any"
	case "tool":
		if choice.Name != "" {
			named := unified.NamedToolChoice{Type: "function"}
			named.Function.Name = choice.Name
			return named
		}
	}
	return "auto"
}

func isPrefixedNonAnthropic(target string) bool {
	for _, prefix := range []string{relay.PrefixOpenAI, relay.PrefixGemini, relay.PrefixGitHub} {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}
