package resilience

import (
	"context"

	"github.com/MrWong99/turnengine/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize sends text to the first healthy provider. If the primary fails,
// subsequent fallbacks are tried in registration order.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) (tts.Result, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (tts.Result, error) {
		return p.Synthesize(ctx, text)
	})
}

// State reports the group's current circuit state, for a readiness check
// that wants to know whether the TTS slot can serve a request without
// spending a real synthesis call to find out.
func (f *TTSFallback) State() State {
	return f.group.State()
}
