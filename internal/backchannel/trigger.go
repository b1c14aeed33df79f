// Package backchannel implements the trigger/selector/timing/player chain
// that decides when, what, and whether to play a brief acknowledgement clip
// while the user still holds the floor.
package backchannel

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/internal/linguistic"
	"github.com/MrWong99/turnengine/pkg/types"
)

// TriggerDetector subscribes to SILENCE_DETECTED and decides whether the
// current short pause is a backchannel opportunity. It never selects a
// clip itself; a successful draw only emits the first-phase, unselected
// BACKCHANNEL_TRIGGERED that the Selector consumes.
type TriggerDetector struct {
	cfg      config.BackchannelConfig
	analyzer *linguistic.Analyzer
	manager  *conversation.Manager
	bus      *bus.Bus

	emotion map[string]struct{}
	prompts []string
}

// NewTriggerDetector constructs a TriggerDetector and subscribes it to
// SILENCE_DETECTED.
func NewTriggerDetector(cfg config.BackchannelConfig, lexicon config.LexiconConfig, analyzer *linguistic.Analyzer, manager *conversation.Manager, b *bus.Bus) *TriggerDetector {
	t := &TriggerDetector{
		cfg:      cfg,
		analyzer: analyzer,
		manager:  manager,
		bus:      b,
		emotion:  toLowerSet(lexicon.EmotionKeywords),
		prompts:  toLowerSlice(lexicon.ExplicitPrompts),
	}
	if b != nil {
		b.Subscribe(bus.SilenceDetected, t.onSilenceDetected)
	}
	return t
}

func (t *TriggerDetector) onSilenceDetected(ev bus.Event) {
	payload := ev.Payload.(bus.SilenceDetectedPayload)
	t.Evaluate(payload.SilenceDurationMs)
}

// Evaluate runs one trigger pass for the given cumulative silence duration.
// Exposed directly so tests can drive it without going through the bus.
func (t *TriggerDetector) Evaluate(silenceDurationMs int) {
	if t.manager.State() != types.StateUserSpeaking {
		return
	}
	if silenceDurationMs < t.cfg.MinSilenceMs || silenceDurationMs > t.cfg.MaxSilenceMs {
		return
	}
	if last, ok := t.manager.LastBackchannelTime(); ok && time.Since(last).Seconds() < t.cfg.MinIntervalS {
		return
	}

	transcript := t.manager.CurrentTurnTranscript()
	analysis := t.analyzer.Analyze(transcript)
	if analysis.SentenceCount < t.cfg.MinSentenceCount || analysis.WordCount < t.cfg.MinWordCount {
		return
	}

	p := t.probability(transcript, analysis)
	if t.bus == nil {
		return
	}
	if rand.Float64() < p {
		t.bus.Emit(bus.BackchannelTriggered, bus.BackchannelTriggeredPayload{
			TriggerStrength:   p,
			SilenceDurationMs: silenceDurationMs,
		})
	}
}

// probability computes the fixed additive trigger probability, clamped to
// [0,1]. Exposed (lowercase) for tests to assert exact values without
// depending on the random draw in Evaluate.
func (t *TriggerDetector) probability(transcript string, analysis linguistic.Result) float64 {
	p := t.cfg.BaseProbability
	lower := strings.ToLower(transcript)

	if containsAnyWord(lower, t.emotion) {
		p += 0.3
	}
	if containsAnyPhrase(lower, t.prompts) {
		p += 0.5
	}
	if last, ok := t.manager.LastBackchannelTime(); ok && time.Since(last).Seconds() < t.cfg.RecentPenaltyS {
		p -= 0.2
	}
	if t.manager.TurnSpeechDurationMs() < 3000 {
		p -= 0.3
	}
	if analysis.EndsWithPunctuation {
		p += 0.2
	}

	return clamp01(p)
}
