package anthropic

import (
	"encoding/json"
	"fmt"
)

// Content block discriminators.
const (
	BlockTypeText       = "text"
	BlockTypeImage      = "image"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock is one typed unit of message content. The Type field selects
// which of the remaining fields are meaningful; MarshalJSON emits only the
// fields that belong to the active variant so that, for example, a text block
// always carries "text" (even when empty) and never a stray "input".
type ContentBlock struct {
	Type string

	// text
	Text string

	// image
	Source map[string]any

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result. Content keeps the raw client payload: a JSON string, a
	// single block object, or a block list. It is interpreted lazily by the
	// request translator.
	ToolUseID string
	Content   json.RawMessage
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewToolUseBlock returns a tool_use content block.
func NewToolUseBlock(id, name string, input map[string]any) ContentBlock {
	if input == nil {
		input = map[string]any{}
	}
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

type textBlockJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageBlockJSON struct {
	Type   string         `json:"type"`
	Source map[string]any `json:"source"`
}

type toolUseBlockJSON struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type toolResultBlockJSON struct {
	Type      string          `json:"type"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON encodes the active variant only.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeText:
		return json.Marshal(textBlockJSON{Type: b.Type, Text: b.Text})
	case BlockTypeImage:
		return json.Marshal(imageBlockJSON{Type: b.Type, Source: b.Source})
	case BlockTypeToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(toolUseBlockJSON{Type: b.Type, ID: b.ID, Name: b.Name, Input: input})
	case BlockTypeToolResult:
		return json.Marshal(toolResultBlockJSON{Type: b.Type, ToolUseID: b.ToolUseID, Content: b.Content})
	default:
		return nil, fmt.Errorf("unknown content block type %q", b.Type)
	}
}

// UnmarshalJSON decodes any of the four block variants keyed on "type".
// Unknown types are preserved with just the discriminator so a permissive
// caller can decide whether to skip or reject them.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode content block: %w", err)
	}

	switch head.Type {
	case BlockTypeText:
		var v textBlockJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode text block: %w", err)
		}
		*b = ContentBlock{Type: v.Type, Text: v.Text}
	case BlockTypeImage:
		var v imageBlockJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode image block: %w", err)
		}
		*b = ContentBlock{Type: v.Type, Source: v.Source}
	case BlockTypeToolUse:
		var v toolUseBlockJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode tool_use block: %w", err)
		}
		*b = ContentBlock{Type: v.Type, ID: v.ID, Name: v.Name, Input: v.Input}
	case BlockTypeToolResult:
		var v toolResultBlockJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode tool_result block: %w", err)
		}
		*b = ContentBlock{Type: v.Type, ToolUseID: v.ToolUseID, Content: v.Content}
	default:
		*b = ContentBlock{Type: head.Type}
	}
	return nil
}

// MessageContent holds a message body that arrives either as a plain string
// or as an ordered list of content blocks. Exactly one representation is set.
type MessageContent struct {
	Plain  string
	Blocks []ContentBlock
	isList bool
}

// TextContent wraps a plain string as message content.
func TextContent(s string) MessageContent {
	return MessageContent{Plain: s}
}

// BlockContent wraps a block list as message content.
func BlockContent(blocks ...ContentBlock) MessageContent {
	return MessageContent{Blocks: blocks, isList: true}
}

// IsList reports whether the content arrived as a block list.
func (c MessageContent) IsList() bool { return c.isList }

// UnmarshalJSON accepts both the string and list forms.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = MessageContent{Plain: s}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("decode message content: %w", err)
	}
	*c = MessageContent{Blocks: blocks, isList: true}
	return nil
}

// MarshalJSON restores the original representation.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.isList {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Plain)
}

// SystemPrompt holds the request system field, which arrives either as a
// string or as a list of text blocks.
type SystemPrompt struct {
	Plain  string
	Blocks []ContentBlock
	isList bool
}

// IsZero reports whether no system prompt was supplied.
func (s SystemPrompt) IsZero() bool { return !s.isList && s.Plain == "" }

// UnmarshalJSON accepts both the string and list forms.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SystemPrompt{Plain: v}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("decode system prompt: %w", err)
	}
	*s = SystemPrompt{Blocks: blocks, isList: true}
	return nil
}

// MarshalJSON restores the original representation.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.isList {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Plain)
}
