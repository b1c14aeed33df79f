// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/turnengine/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by every Synthesize call.
	Result tts.Result

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns Result, Err.
func (p *Provider) Synthesize(ctx context.Context, text string) (tts.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text})
	if p.Err != nil {
		return tts.Result{}, p.Err
	}
	return p.Result, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
