package anthropic

// Streaming event names in the order they may legally appear:
// message_start, content_block_start, ping, content_block_delta,
// content_block_stop, message_delta, message_stop.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
)

// Delta discriminators inside content_block_delta.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// MessageStartEvent opens a stream with an empty assistant message shell.
type MessageStartEvent struct {
	Type    string           `json:"type"`
	Message MessagesResponse `json:"message"`
}

// ContentBlockStartEvent opens the content block at Index.
type ContentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// BlockDelta is the union payload of a content_block_delta: text_delta
// carries Text, input_json_delta carries PartialJSON.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockDeltaEvent appends an increment to the block at Index.
type ContentBlockDeltaEvent struct {
	Type  string     `json:"type"`
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaBody carries the terminal stop reason.
type MessageDeltaBody struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageDeltaUsage reports output tokens at end of stream.
type MessageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageDeltaEvent carries the stop reason and final usage.
type MessageDeltaEvent struct {
	Type  string            `json:"type"`
	Delta MessageDeltaBody  `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

// MessageStopEvent terminates the event sequence.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// PingEvent is a keep-alive frame.
type PingEvent struct {
	Type string `json:"type"`
}
