// Package vad implements the hysteretic voice-activity state machine that
// sits on top of the opaque speech-probability oracle in pkg/provider/vad.
package vad

import (
	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	provider "github.com/MrWong99/turnengine/pkg/provider/vad"
)

// State is one of the three hysteresis states a Processor can be in.
type State int

const (
	NotSpeaking State = iota
	Speaking
	SilenceAfterSpeech
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case NotSpeaking:
		return "NOT_SPEAKING"
	case Speaking:
		return "SPEAKING"
	case SilenceAfterSpeech:
		return "SILENCE_AFTER_SPEECH"
	default:
		return "UNKNOWN"
	}
}

// Processor wraps a [provider.SessionHandle] with the hysteretic state
// machine described for the VAD Processor: consecutive-chunk counters
// gate SPEAKING/NOT_SPEAKING transitions, and silence emits a heartbeat
// event on every qualifying chunk rather than a single edge.
//
// Processor exclusively owns the oracle's hidden state; it is reset
// whenever the processor itself is reset. Not safe for concurrent use —
// callers must serialize ProcessChunk calls per connection, matching the
// "VAD state transitions are totally ordered per connection" guarantee.
type Processor struct {
	session provider.SessionHandle
	bus     *bus.Bus
	cfg     config.VADConfig
	chunkMs int

	state State

	aboveCount int
	belowCount int

	speechChunks  int
	silenceChunks int
}

// New constructs a Processor bound to session. chunkMs is the duration in
// milliseconds represented by a single chunk passed to ProcessChunk.
func New(session provider.SessionHandle, b *bus.Bus, cfg config.VADConfig, chunkMs int) *Processor {
	return &Processor{
		session: session,
		bus:     b,
		cfg:     cfg,
		chunkMs: chunkMs,
		state:   NotSpeaking,
	}
}

// State returns the processor's current hysteresis state.
func (p *Processor) State() State {
	return p.state
}

// ProcessChunk runs one VAD chunk through the oracle and advances the state
// machine, emitting SPEECH_STARTED / SILENCE_DETECTED events as described in
// the component design. Returns the oracle's raw probability for callers
// that want it for diagnostics.
func (p *Processor) ProcessChunk(chunk []float32) (float64, error) {
	ev, err := p.session.ProcessFrame(chunk)
	if err != nil {
		return 0, err
	}
	p.advance(ev.Probability)
	return ev.Probability, nil
}

func (p *Processor) advance(probability float64) {
	isSpeech := probability > p.cfg.SpeechThreshold

	switch p.state {
	case NotSpeaking:
		p.onSilenceOutsideSpeech(isSpeech)

	case Speaking:
		p.speechChunks++
		if isSpeech {
			p.belowCount = 0
			return
		}
		p.belowCount++
		if p.belowCount >= p.cfg.SpeechEndChunks {
			p.state = SilenceAfterSpeech
			p.silenceChunks = p.belowCount
			p.aboveCount = 0
			speechDurationMs := (p.speechChunks - p.belowCount) * p.chunkMs
			p.emitSilence(p.silenceChunks*p.chunkMs, speechDurationMs)
		}

	case SilenceAfterSpeech:
		if isSpeech {
			p.aboveCount++
			p.belowCount = 0
			if p.aboveCount >= p.cfg.SpeechStartChunks {
				p.state = Speaking
				p.speechChunks = p.aboveCount
				p.aboveCount = 0
				p.emitSpeechStarted(true)
			}
			return
		}
		p.aboveCount = 0
		p.silenceChunks++
		durationMs := p.silenceChunks * p.chunkMs
		if durationMs >= p.cfg.MinSilenceDurationMs {
			p.emitSilence(durationMs, 0)
		}
	}
}

func (p *Processor) onSilenceOutsideSpeech(isSpeech bool) {
	if !isSpeech {
		p.aboveCount = 0
		return
	}
	p.aboveCount++
	if p.aboveCount >= p.cfg.SpeechStartChunks {
		p.state = Speaking
		p.speechChunks = p.aboveCount
		p.aboveCount = 0
		p.belowCount = 0
		p.emitSpeechStarted(false)
	}
}

func (p *Processor) emitSpeechStarted(resumed bool) {
	if p.bus == nil {
		return
	}
	p.bus.Emit(bus.SpeechStarted, bus.SpeechStartedPayload{Resumed: resumed})
}

func (p *Processor) emitSilence(silenceDurationMs, speechDurationMs int) {
	if p.bus == nil {
		return
	}
	p.bus.Emit(bus.SilenceDetected, bus.SilenceDetectedPayload{
		SilenceDurationMs: silenceDurationMs,
		SpeechDurationMs:  speechDurationMs,
	})
}

// Reset returns the processor (and the oracle's hidden state) to
// NOT_SPEAKING, discarding all counters.
func (p *Processor) Reset() {
	p.session.Reset()
	p.state = NotSpeaking
	p.aboveCount = 0
	p.belowCount = 0
	p.speechChunks = 0
	p.silenceChunks = 0
}
