// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to feed scripted Result values and to verify which WAV clips
// were submitted for transcription.
//
// Example:
//
//	p := &mock.Provider{Results: []stt.Result{{Text: "hello", Ok: true}}}
//	res, _ := p.Transcribe(ctx, wav)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/turnengine/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// WAV is a copy of the bytes passed to Transcribe.
	WAV []byte
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call when Results is empty.
	Result stt.Result

	// Results, if non-empty, is consumed in order across successive
	// Transcribe calls (the last entry repeats once exhausted).
	Results []stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the next scripted Result.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := make([]byte, len(wav))
	copy(cp, wav)
	p.Calls = append(p.Calls, TranscribeCall{WAV: cp})

	if p.Err != nil {
		return stt.Result{}, p.Err
	}
	if len(p.Results) > 0 {
		idx := len(p.Calls) - 1
		if idx >= len(p.Results) {
			idx = len(p.Results) - 1
		}
		return p.Results[idx], nil
	}
	return p.Result, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
