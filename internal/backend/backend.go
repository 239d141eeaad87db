// Package backend defines the completion-backend collaborator contract and a
// reference implementation speaking the OpenAI-compatible chat completions
// protocol every supported provider exposes.
package backend

import (
	"context"
	"iter"

	"github.com/modelrelay/modelrelay/internal/relay/unified"
)

// Completer executes unified completion requests against a provider.
//
// Complete returns the provider response in any shape unified.ViewResponse
// accepts (typed struct or raw JSON). CompleteStreaming returns the
// provider's chunk sequence; iteration stops when the caller stops pulling,
// so cancellation follows the request context.
type Completer interface {
	Complete(ctx context.Context, req unified.Request) (any, error)
	CompleteStreaming(ctx context.Context, req unified.Request) (iter.Seq2[unified.ChunkView, error], error)
}
