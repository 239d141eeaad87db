// Package translate converts Anthropic Messages API requests and responses
// to and from the unified completion contract, including live SSE stream
// reassembly.
package translate

import "fmt"

// ConversionError reports a malformed or unexpected request/response shape.
// It is always recovered locally with a best-effort fallback value and never
// crosses the public request boundary.
type ConversionError struct {
	Stage string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed at %s: %v", e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ChunkProcessingError reports one malformed provider chunk. The chunk is
// logged and skipped; the stream continues.
type ChunkProcessingError struct {
	Err error
}

func (e *ChunkProcessingError) Error() string {
	return fmt.Sprintf("chunk processing failed: %v", e.Err)
}

func (e *ChunkProcessingError) Unwrap() error { return e.Err }

// TerminalStreamError reports a failure that halts further chunk consumption.
// The reassembler converts it into the standard terminal event sequence so
// the transport never sees an unterminated stream.
type TerminalStreamError struct {
	Err error
}

func (e *TerminalStreamError) Error() string {
	return fmt.Sprintf("stream terminated: %v", e.Err)
}

func (e *TerminalStreamError) Unwrap() error { return e.Err }
