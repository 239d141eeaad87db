// Package unified defines the provider-neutral completion contract the
// gateway translates into and out of. The shapes follow the OpenAI chat
// completion wire format, which every supported backend either speaks
// natively or is adapted to by its SDK.
package unified

// Message is one flattened turn of a unified request. Content is either a
// plain string or an ordered []map[string]any block list, mirroring the wire
// format's own permissiveness.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// FunctionSchema is a function-call tool definition.
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool wraps a function schema in the tools array entry shape.
type Tool struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// NamedToolChoice forces the model to call one specific function.
type NamedToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// Request is a provider-neutral completion request.
//
// ToolChoice is either a string mode ("auto", "any") or a NamedToolChoice;
// Thinking is forwarded opaquely and only set for Anthropic-family targets.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	TopK        *int      `json:"top_k,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  any       `json:"tool_choice,omitempty"`
	Thinking    any       `json:"thinking,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}
