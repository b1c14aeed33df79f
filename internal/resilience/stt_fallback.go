package resilience

import (
	"context"

	"github.com/MrWong99/turnengine/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe sends wav to the first healthy provider. If the primary fails,
// subsequent fallbacks are tried in registration order.
func (f *STTFallback) Transcribe(ctx context.Context, wav []byte) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (stt.Result, error) {
		return p.Transcribe(ctx, wav)
	})
}

// State reports the group's current circuit state, for a readiness check
// that wants to know whether the STT slot can serve a request without
// spending a real transcription call to find out.
func (f *STTFallback) State() State {
	return f.group.State()
}
