package translate

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/anthropic"
	"github.com/modelrelay/modelrelay/internal/relay"
	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// Event is one outbound SSE frame. A named event renders as
// "event: <name>\ndata: <json>\n\n"; an unnamed event renders its Data
// verbatim as a bare "data:" line (used for the [DONE] marker).
type Event struct {
	Name string
	Data any
}

// doneMarker terminates every stream, matching Anthropic's framing.
const doneMarker = "[DONE]"

// stopReasonError is emitted on unhandled stream failures. It is outside the
// documented stop_reason enum on purpose: clients should treat it as a
// terminated-with-error turn.
const stopReasonError = "error"

// Reassembler converts a backend chunk sequence into an ordered Anthropic
// SSE event sequence. It is a strictly sequential, single-stream state
// machine: content-block index 0 is the text block, opened exactly once at
// Start; tool calls get indices from 1 upward in order of first appearance of
// their provider-local index; every opened index is closed exactly once
// before message_stop, and message_stop is emitted at most once.
//
// Drive it with Start, then Next per chunk until Done reports true, then
// Finalize when the backend sequence ends. Fail produces the terminal
// sequence for unrecoverable errors. Not safe for concurrent use.
type Reassembler struct {
	decision  relay.Decision
	messageID string

	accumulatedText string
	textSent        bool
	textBlockClosed bool

	// nextIndex is the next free Anthropic content-block index; 0 is
	// reserved for the text block.
	nextIndex       int
	indexByProvider map[int]int

	outputTokens int
	stopSent     bool
}

// NewReassembler creates a reassembler for one stream. The decision supplies
// the original model name echoed in message_start.
func NewReassembler(decision relay.Decision) *Reassembler {
	return &Reassembler{
		decision:        decision,
		messageID:       "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24],
		nextIndex:       1,
		indexByProvider: make(map[int]int),
	}
}

// Done reports whether the terminal sequence has been emitted; further
// chunks must not be consumed.
func (r *Reassembler) Done() bool { return r.stopSent }

// Start emits the stream preamble: message_start with an empty message
// shell, content_block_start for the text block at index 0, and a ping.
func (r *Reassembler) Start() []Event {
	return []Event{
		{Name: anthropic.EventMessageStart, Data: anthropic.MessageStartEvent{
			Type: anthropic.EventMessageStart,
			Message: anthropic.MessagesResponse{
				ID:      r.messageID,
				Type:    "message",
				Role:    anthropic.RoleAssistant,
				Model:   r.decision.Original,
				Content: []anthropic.ContentBlock{},
			},
		}},
		blockStartEvent(0, anthropic.NewTextBlock("")),
		{Name: anthropic.EventPing, Data: anthropic.PingEvent{Type: anthropic.EventPing}},
	}
}

// Next processes one backend chunk and returns the events it produces.
// A failure while processing a chunk is logged and the chunk skipped; the
// stream continues with the next one.
//
// Chunk processing is transactional: discarding a failed chunk's events must
// also discard its state changes, or a block opened during the failed chunk
// would later be closed without the client ever seeing its open.
func (r *Reassembler) Next(ctx context.Context, chunk unified.ChunkView) (events []Event) {
	if r.stopSent {
		return nil
	}
	snapshot := *r
	snapshot.indexByProvider = maps.Clone(r.indexByProvider)
	defer func() {
		if p := recover(); p != nil {
			err := &ChunkProcessingError{Err: fmt.Errorf("%v", p)}
			slog.ErrorContext(ctx, "skipping malformed chunk", "error", err)
			*r = snapshot
			events = nil
		}
	}()

	if tokens, ok := chunk.CompletionTokens(); ok {
		r.outputTokens = tokens
	}

	if text, ok := chunk.TextDelta(); ok && text != "" {
		r.accumulatedText += text
		// Flush as we go while the text block is still streaming.
		if len(r.indexByProvider) == 0 && !r.textBlockClosed {
			r.textSent = true
			events = append(events, textDeltaEvent(text))
		}
	}

	if deltas := chunk.ToolCallDeltas(); len(deltas) > 0 {
		if len(r.indexByProvider) == 0 {
			events = append(events, r.closeTextBlock()...)
		}
		for _, delta := range deltas {
			events = append(events, r.toolDelta(delta)...)
		}
	}

	if reason, ok := chunk.FinishReason(); ok && reason != "" {
		events = append(events, r.terminalSequence(StopReason(reason))...)
	}

	return events
}

// Finalize terminates a stream whose backend sequence ended without a finish
// signal, defaulting the stop reason to end_turn so the client always
// receives a well-formed terminated stream.
func (r *Reassembler) Finalize() []Event {
	return r.terminalSequence(anthropic.StopReasonEndTurn)
}

// Fail emits the best-effort terminal sequence for an unrecoverable stream
// error. The transport must never see a raw failure or an unterminated
// stream.
func (r *Reassembler) Fail(ctx context.Context, err error) []Event {
	if r.stopSent {
		return nil
	}
	slog.ErrorContext(ctx, "stream failed", "error", &TerminalStreamError{Err: err})
	r.stopSent = true
	return []Event{
		messageDeltaEvent(stopReasonError, 0),
		messageStopEvent(),
		{Data: doneMarker},
	}
}

// closeTextBlock closes content block 0 on the first tool-call sighting,
// flushing buffered text that was never streamed. The block is closed even
// when no text arrived at all: empty text blocks still need their stop event.
func (r *Reassembler) closeTextBlock() []Event {
	if r.textBlockClosed {
		return nil
	}
	r.textBlockClosed = true

	var events []Event
	if r.accumulatedText != "" && !r.textSent {
		r.textSent = true
		events = append(events, textDeltaEvent(r.accumulatedText))
	}
	return append(events, blockStopEvent(0))
}

// toolDelta resolves one provider-local tool fragment to its Anthropic block,
// allocating a fresh index and opening the block on first sight.
func (r *Reassembler) toolDelta(delta unified.ToolCallDelta) []Event {
	var events []Event

	index, known := r.indexByProvider[delta.Index]
	if !known {
		index = r.nextIndex
		r.nextIndex++
		r.indexByProvider[delta.Index] = index

		id := delta.ID
		if id == "" {
			id = "toolu_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
		}
		events = append(events, blockStartEvent(index, anthropic.NewToolUseBlock(id, delta.Name, map[string]any{})))
	}

	// Argument fragments are partial JSON and travel verbatim; they are not
	// individually valid documents and must not be re-parsed here.
	if delta.ArgumentsFragment != "" {
		events = append(events, Event{
			Name: anthropic.EventContentBlockDelta,
			Data: anthropic.ContentBlockDeltaEvent{
				Type:  anthropic.EventContentBlockDelta,
				Index: index,
				Delta: anthropic.BlockDelta{Type: anthropic.DeltaTypeInputJSON, PartialJSON: delta.ArgumentsFragment},
			},
		})
	}
	return events
}

// terminalSequence closes every open block and emits
// message_delta, message_stop and the [DONE] marker exactly once.
func (r *Reassembler) terminalSequence(stopReason string) []Event {
	if r.stopSent {
		return nil
	}
	r.stopSent = true

	var events []Event
	for i := 1; i < r.nextIndex; i++ {
		events = append(events, blockStopEvent(i))
	}
	if !r.textBlockClosed {
		r.textBlockClosed = true
		if r.accumulatedText != "" && !r.textSent {
			r.textSent = true
			events = append(events, textDeltaEvent(r.accumulatedText))
		}
		events = append(events, blockStopEvent(0))
	}

	return append(events,
		messageDeltaEvent(stopReason, r.outputTokens),
		messageStopEvent(),
		Event{Data: doneMarker},
	)
}

func blockStartEvent(index int, block anthropic.ContentBlock) Event {
	return Event{
		Name: anthropic.EventContentBlockStart,
		Data: anthropic.ContentBlockStartEvent{
			Type:         anthropic.EventContentBlockStart,
			Index:        index,
			ContentBlock: block,
		},
	}
}

func blockStopEvent(index int) Event {
	return Event{
		Name: anthropic.EventContentBlockStop,
		Data: anthropic.ContentBlockStopEvent{Type: anthropic.EventContentBlockStop, Index: index},
	}
}

func textDeltaEvent(text string) Event {
	return Event{
		Name: anthropic.EventContentBlockDelta,
		Data: anthropic.ContentBlockDeltaEvent{
			Type:  anthropic.EventContentBlockDelta,
			Index: 0,
			Delta: anthropic.BlockDelta{Type: anthropic.DeltaTypeText, Text: text},
		},
	}
}

func messageDeltaEvent(stopReason string, outputTokens int) Event {
	return Event{
		Name: anthropic.EventMessageDelta,
		Data: anthropic.MessageDeltaEvent{
			Type:  anthropic.EventMessageDelta,
			Delta: anthropic.MessageDeltaBody{StopReason: stopReason, StopSequence: nil},
			Usage: anthropic.MessageDeltaUsage{OutputTokens: outputTokens},
		},
	}
}

func messageStopEvent() Event {
	return Event{
		Name: anthropic.EventMessageStop,
		Data: anthropic.MessageStopEvent{Type: anthropic.EventMessageStop},
	}
}
