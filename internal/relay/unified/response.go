package unified

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// FunctionCall carries a tool invocation's name and raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one structured tool invocation in a response.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// ResponseMessage is the assistant message of a completion choice.
type ResponseMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Choice is one completion alternative; the gateway only reads choice 0.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage reports token consumption in the unified shape.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider-neutral completion response.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ResponseView gives shape-independent access to a completion response.
// Backends return either typed Response structs or raw provider JSON;
// translation logic depends only on this interface and never branches on
// the underlying shape.
type ResponseView interface {
	// ID returns the provider response id, empty when absent.
	ID() string
	// Text returns the first choice's message text; ok is false when the
	// field is null or missing.
	Text() (string, bool)
	// ToolCalls returns the first choice's tool calls, nil when absent.
	ToolCalls() []ToolCall
	// FinishReason returns the first choice's finish reason, empty when absent.
	FinishReason() string
	// PromptTokens and CompletionTokens default to 0 when usage is missing.
	PromptTokens() int
	CompletionTokens() int
}

// ViewResponse wraps any supported backend response shape in a ResponseView.
func ViewResponse(v any) (ResponseView, error) {
	switch r := v.(type) {
	case *Response:
		return typedResponseView{r: r}, nil
	case Response:
		return typedResponseView{r: &r}, nil
	case json.RawMessage:
		return rawResponseView{doc: gjson.ParseBytes(r)}, nil
	case []byte:
		return rawResponseView{doc: gjson.ParseBytes(r)}, nil
	case string:
		return rawResponseView{doc: gjson.Parse(r)}, nil
	case map[string]any:
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal map response: %w", err)
		}
		return rawResponseView{doc: gjson.ParseBytes(raw)}, nil
	default:
		return nil, fmt.Errorf("unsupported response shape %T", v)
	}
}

type typedResponseView struct {
	r *Response
}

func (v typedResponseView) ID() string { return v.r.ID }

func (v typedResponseView) Text() (string, bool) {
	if len(v.r.Choices) == 0 || v.r.Choices[0].Message.Content == nil {
		return "", false
	}
	return *v.r.Choices[0].Message.Content, true
}

func (v typedResponseView) ToolCalls() []ToolCall {
	if len(v.r.Choices) == 0 {
		return nil
	}
	return v.r.Choices[0].Message.ToolCalls
}

func (v typedResponseView) FinishReason() string {
	if len(v.r.Choices) == 0 {
		return ""
	}
	return v.r.Choices[0].FinishReason
}

func (v typedResponseView) PromptTokens() int     { return v.r.Usage.PromptTokens }
func (v typedResponseView) CompletionTokens() int { return v.r.Usage.CompletionTokens }

// rawResponseView reads provider JSON directly. gjson tolerates missing
// paths, which is exactly the defaulting behavior the translator needs.
type rawResponseView struct {
	doc gjson.Result
}

func (v rawResponseView) ID() string { return v.doc.Get("id").String() }

func (v rawResponseView) Text() (string, bool) {
	content := v.doc.Get("choices.0.message.content")
	if !content.Exists() || content.Type == gjson.Null {
		return "", false
	}
	return content.String(), true
}

func (v rawResponseView) ToolCalls() []ToolCall {
	calls := v.doc.Get("choices.0.message.tool_calls")
	if !calls.Exists() || !calls.IsArray() {
		return nil
	}
	var out []ToolCall
	calls.ForEach(func(_, call gjson.Result) bool {
		out = append(out, ToolCall{
			ID:   call.Get("id").String(),
			Type: call.Get("type").String(),
			Function: FunctionCall{
				Name:      call.Get("function.name").String(),
				Arguments: call.Get("function.arguments").String(),
			},
		})
		return true
	})
	return out
}

func (v rawResponseView) FinishReason() string {
	return v.doc.Get("choices.0.finish_reason").String()
}

func (v rawResponseView) PromptTokens() int {
	return int(v.doc.Get("usage.prompt_tokens").Int())
}

func (v rawResponseView) CompletionTokens() int {
	return int(v.doc.Get("usage.completion_tokens").Int())
}
