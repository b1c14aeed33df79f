// Package turndetect fuses silence, linguistic, and conversational-context
// signals into a single turn-end decision.
package turndetect

import (
	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/internal/linguistic"
	"github.com/MrWong99/turnengine/pkg/types"
)

// Detector subscribes to SILENCE_DETECTED and decides whether the current
// turn has ended, is ambiguously paused, or should continue.
type Detector struct {
	cfg      config.TurnDetectConfig
	analyzer *linguistic.Analyzer
	manager  *conversation.Manager
	bus      *bus.Bus
}

// New constructs a Detector and subscribes it to SILENCE_DETECTED.
func New(cfg config.TurnDetectConfig, analyzer *linguistic.Analyzer, manager *conversation.Manager, b *bus.Bus) *Detector {
	d := &Detector{cfg: cfg, analyzer: analyzer, manager: manager, bus: b}
	if b != nil {
		b.Subscribe(bus.SilenceDetected, d.onSilenceDetected)
	}
	return d
}

func (d *Detector) onSilenceDetected(ev bus.Event) {
	payload := ev.Payload.(bus.SilenceDetectedPayload)
	d.Evaluate(payload.SilenceDurationMs)
}

// Evaluate runs one fusion pass for the given cumulative silence duration.
// Exposed directly so tests and alternative wiring can drive it without
// going through the bus.
func (d *Detector) Evaluate(silenceDurationMs int) {
	if d.manager.State() != types.StateUserSpeaking {
		return
	}

	transcript := d.manager.CurrentTurnTranscript()
	analysis := d.analyzer.Analyze(transcript)

	sScore := silenceScore(silenceDurationMs)
	lScore := analysis.CompletenessScore
	cScore := d.contextScore(analysis)

	final := d.cfg.SilenceWeight*sScore + d.cfg.LinguisticWeight*lScore + d.cfg.ContextWeight*cScore

	scores := bus.TurnScores{
		SilenceScore:    sScore,
		LinguisticScore: lScore,
		ContextScore:    cScore,
		FinalScore:      final,
	}

	if d.bus != nil {
		d.bus.Emit(bus.TurnEvaluation, bus.TurnEvaluationPayload{
			Scores:            scores,
			SilenceDurationMs: silenceDurationMs,
		})
	}

	switch {
	case final > d.cfg.TurnEndScoreThreshold:
		d.manager.UpdateState(types.StateAgentThinking)
		if d.bus != nil {
			d.bus.Emit(bus.TurnEnded, bus.TurnEndedPayload{
				Transcript:        transcript,
				Scores:            scores,
				SilenceDurationMs: silenceDurationMs,
			})
		}
	case final > d.cfg.EvaluatingPauseThreshold:
		d.manager.UpdateState(types.StateEvaluatingPause)
	}
}

// silenceScore implements the fixed step function of cumulative silence.
func silenceScore(durationMs int) float64 {
	switch {
	case durationMs < 400:
		return 10
	case durationMs < 700:
		return 20
	case durationMs < 1000:
		return 50
	case durationMs < 1500:
		return 80
	default:
		return 100
	}
}

func (d *Detector) contextScore(analysis linguistic.Result) float64 {
	score := 50.0
	speakingMs := d.manager.TurnSpeechDurationMs()

	if speakingMs > 15000 {
		score += 20
	} else if speakingMs < 2000 {
		score -= 10
	}
	if analysis.WordCount < 5 {
		score -= 20
	}
	if analysis.SentenceCount >= 2 {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
