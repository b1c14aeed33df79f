// Package mixer implements the Audio Mixer: an additive two-channel mixer
// combining agent speech (primary) and backchannel acknowledgements
// (secondary) into a single outbound sample stream.
package mixer

import (
	"sync"
	"time"

	"github.com/MrWong99/turnengine/internal/backchannel"
	"github.com/MrWong99/turnengine/internal/response"
)

// Compile-time interface assertions: Mixer satisfies both the Response
// Coordinator's and the Backchannel Player's narrow collaborator contracts.
var (
	_ response.Mixer   = (*Mixer)(nil)
	_ backchannel.Mixer = (*Mixer)(nil)
)

const (
	tickInterval = 10 * time.Millisecond

	// secondaryGain is the fixed attenuation applied to the backchannel
	// channel when mixing, per the data model's "secondary = backchannel at
	// 50%" rule.
	secondaryGain = 0.5
)

// Mixer holds two input sample queues (primary = agent speech at 100%,
// secondary = backchannel at 50%) and a background worker that wakes every
// tickInterval, drains both queues, sums them sample-for-sample, clips to
// [-1, 1], and delivers the result to output.
//
// All exported methods are safe for concurrent use.
type Mixer struct {
	output func([]float32)

	mu        sync.Mutex
	primary   []float32
	secondary []float32

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a Mixer that delivers mixed sample chunks to output. The
// mixer starts its background tick worker immediately. output must not be
// nil and must not block for extended periods; it is called sequentially
// from the worker goroutine.
//
// Call [Mixer.Close] to stop the worker and release resources.
func New(output func([]float32)) *Mixer {
	m := &Mixer{
		output: output,
		done:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// SubmitPrimary appends samples to the primary (agent speech) queue.
func (m *Mixer) SubmitPrimary(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.primary = append(m.primary, samples...)
}

// SubmitSecondary appends samples to the secondary (backchannel) queue. The
// 50% attenuation is applied at mix time, not here.
func (m *Mixer) SubmitSecondary(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.secondary = append(m.secondary, samples...)
}

// Reset clears both input queues without stopping the worker. Called on
// conversation state reset (e.g. peer disconnect) to discard any
// not-yet-mixed audio.
func (m *Mixer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary = nil
	m.secondary = nil
}

// Close stops the background worker and releases resources. Idempotent:
// subsequent calls are no-ops.
func (m *Mixer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	return nil
}

func (m *Mixer) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick drains both queues, mixes them, and delivers the result. If both
// queues are empty, nothing is delivered.
func (m *Mixer) tick() {
	p, s := m.drainLocked()
	if len(p) == 0 && len(s) == 0 {
		return
	}

	n := len(p)
	if len(s) > n {
		n = len(s)
	}

	mixed := make([]float32, n)
	for i := 0; i < n; i++ {
		var sample float32
		if i < len(p) {
			sample += p[i]
		}
		if i < len(s) {
			sample += s[i] * secondaryGain
		}
		mixed[i] = clip(sample)
	}

	m.output(mixed)
}

func (m *Mixer) drainLocked() ([]float32, []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.primary
	s := m.secondary
	m.primary = nil
	m.secondary = nil
	return p, s
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
