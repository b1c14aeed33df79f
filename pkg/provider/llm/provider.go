// Package llm defines the Provider interface for the large-language-model
// collaborator.
//
// An LLM provider wraps a remote or local model API and exposes a uniform
// streaming-completion interface to the Response Coordinator, without
// coupling the engine to any specific SDK.
//
// Implementors must be safe for concurrent use. Channels returned by
// StreamCompletion must be closed by the implementation when the stream
// ends or when the supplied context is cancelled.
package llm

import (
	"context"

	"github.com/MrWong99/turnengine/pkg/types"
)

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// Each method should propagate context cancellation promptly.
type Provider interface {
	// StreamCompletion sends req to the model and returns a read-only
	// channel that emits Chunk values as they arrive. The channel is closed
	// by the implementation when generation finishes or when ctx is
	// cancelled.
	//
	// Callers must drain the channel to avoid goroutine leaks. Errors that
	// occur after the channel is opened are surfaced as a Chunk with
	// FinishReason "error"; the initial error return is non-nil only for
	// failures that prevent the stream from starting.
	//
	// The returned channel must never be nil when error is nil.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)

	// Complete sends req to the model and waits for the full response. It
	// is a convenience wrapper around StreamCompletion for callers that do
	// not need incremental output.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports. Assumed constant for the provider's
	// lifetime.
	Capabilities() types.ModelCapabilities
}
