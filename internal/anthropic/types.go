package anthropic

// Message roles accepted on /v1/messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stop reasons emitted in responses.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonStopSequence = "stop_sequence"
	StopReasonToolUse      = "tool_use"
)

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role" validate:"required,oneof=user assistant"`
	Content MessageContent `json:"content"`
}

// Tool describes a callable tool offered to the model.
type Tool struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoice selects how the model may use tools: auto, any, or one named tool.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// ThinkingConfig carries the extended-thinking request option. Forwarded to
// Anthropic-family targets only; other providers reject the field.
type ThinkingConfig struct {
	Type         string `json:"type,omitempty"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
	Enabled      bool   `json:"enabled,omitempty"`
}

// MessagesRequest is the inbound body of POST /v1/messages.
type MessagesRequest struct {
	Model         string          `json:"model" validate:"required"`
	MaxTokens     int             `json:"max_tokens" validate:"required,gt=0"`
	Messages      []Message       `json:"messages" validate:"required,min=1,dive"`
	System        SystemPrompt    `json:"system,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Tools         []Tool          `json:"tools,omitempty" validate:"dive"`
	ToolChoice    *ToolChoice     `json:"tool_choice,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`
}

// Usage reports token consumption in Anthropic's shape.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// MessagesResponse is the non-streaming response of POST /v1/messages.
// Content holds text and tool_use blocks only.
type MessagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   string         `json:"stop_reason,omitempty"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// CountTokensRequest is the inbound body of POST /v1/messages/count_tokens.
type CountTokensRequest struct {
	Model      string          `json:"model" validate:"required"`
	Messages   []Message       `json:"messages" validate:"required,min=1,dive"`
	System     SystemPrompt    `json:"system,omitempty"`
	Tools      []Tool          `json:"tools,omitempty" validate:"dive"`
	ToolChoice *ToolChoice     `json:"tool_choice,omitempty"`
	Thinking   *ThinkingConfig `json:"thinking,omitempty"`
}

// CountTokensResponse is the body returned by count_tokens.
type CountTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

// ErrorDetail is the inner error object of Anthropic error responses.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the Anthropic-style error envelope:
// {"type":"error","error":{"type":...,"message":...}}.
type ErrorResponse struct {
	Type string      `json:"type"`
	Err  ErrorDetail `json:"error"`
}

// Error implements the error interface so ErrorResponse can travel in error
// returns while keeping the full wire structure for marshaling.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

// NewErrorResponse builds an Anthropic-style error envelope.
func NewErrorResponse(errType, message string) *ErrorResponse {
	return &ErrorResponse{Type: "error", Err: ErrorDetail{Type: errType, Message: message}}
}
