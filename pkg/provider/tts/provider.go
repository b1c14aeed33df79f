// Package tts defines the Provider interface for the text-to-speech
// collaborator.
//
// Unlike a channel-driven streaming synthesizer, the Response Coordinator
// calls Synthesize once per completed reply and waits for
// a single clip — a narrower, one-shot cut of a richer TTS SDK, matching
// spec section 6's synthesize(text) -> pcm_bytes | null contract.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text to mono 16 kHz 16-bit PCM audio. Result.PCM
	// must already be at the engine's canonical rate: an implementation
	// whose backend produces another rate (commonly 24 kHz) downsamples it
	// itself, and callers do not resample the result.
	//
	// Returns a non-nil error only for transport/provider failures;
	// Result.Ok=false signals a provider that declined to produce audio.
	Synthesize(ctx context.Context, text string) (Result, error)
}
