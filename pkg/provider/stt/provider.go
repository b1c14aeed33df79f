// Package stt defines the Provider interface for the speech-to-text
// collaborator.
//
// Unlike a persistent streaming session, this engine's Transcription
// Coordinator dispatches one self-contained WAV clip per accumulated audio
// chunk and waits for a single result — the narrower, non-streaming cut of
// a richer STT SDK that spec section 6 calls for.
//
// Implementations must be safe for concurrent use: the coordinator dispatches
// multiple chunks concurrently.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe sends a self-contained WAV clip (mono 16 kHz 16-bit PCM)
	// and returns the recognized text. Result.Ok is false if the provider
	// could not produce a transcript (e.g. the clip was silence).
	//
	// Returns a non-nil error only for transport/provider failures; an
	// empty-but-successful transcription is reported via Result.Ok=false,
	// not an error.
	Transcribe(ctx context.Context, wav []byte) (Result, error)
}
