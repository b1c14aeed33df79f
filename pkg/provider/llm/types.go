package llm

import "github.com/MrWong99/turnengine/pkg/types"

// CompletionRequest carries everything the LLM needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history: {(user, assistant)*,
	// user}, with no system message (that travels in SystemPrompt). The
	// last message is always the latest user utterance that ended the turn.
	Messages []types.Message

	// SystemPrompt is prepended ahead of the conversation history. The
	// Response Coordinator passes the configured prompt unchanged; the
	// default configuration's prompt requests 2-3 sentence replies.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0].
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may
	// generate. Zero means use the provider default.
	MaxTokens int
}

// Chunk is a single token or fragment emitted by a streaming completion.
type Chunk struct {
	// Text is the incremental text content of this chunk.
	Text string

	// FinishReason is set on the final chunk: "stop", "length", or "error".
	// Empty on non-final chunks.
	FinishReason string
}

// CompletionResponse is returned by the non-streaming Complete method.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string
}
