package backchannel

import (
	"math/rand/v2"
	"strings"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/internal/linguistic"
	"github.com/MrWong99/turnengine/pkg/types"
)

// Selector consumes the first-phase, unselected BACKCHANNEL_TRIGGERED and
// re-emits it enriched with a chosen clip kind.
type Selector struct {
	analyzer *linguistic.Analyzer
	manager  *conversation.Manager
	bus      *bus.Bus

	emotion map[string]struct{}
}

// NewSelector constructs a Selector and subscribes it to BACKCHANNEL_TRIGGERED.
func NewSelector(lexicon config.LexiconConfig, analyzer *linguistic.Analyzer, manager *conversation.Manager, b *bus.Bus) *Selector {
	s := &Selector{
		analyzer: analyzer,
		manager:  manager,
		bus:      b,
		emotion:  toLowerSet(lexicon.EmotionKeywords),
	}
	if b != nil {
		b.Subscribe(bus.BackchannelTriggered, s.onTriggered)
	}
	return s
}

func (s *Selector) onTriggered(ev bus.Event) {
	payload := ev.Payload.(bus.BackchannelTriggeredPayload)
	if payload.KindSelected || payload.ProceedToPlay {
		// Already enriched by us, or carried through by the timing
		// controller; only the bare trigger-detector event is ours.
		return
	}

	kind := s.Select()
	if s.bus != nil {
		s.bus.Emit(bus.BackchannelTriggered, bus.BackchannelTriggeredPayload{
			TriggerStrength:   payload.TriggerStrength,
			SilenceDurationMs: payload.SilenceDurationMs,
			Kind:              kind,
			KindSelected:      true,
		})
	}
}

// Select derives the candidate set from the current turn transcript, applies
// anti-repetition filtering against recent history, and chooses with weights
// inversely proportional to usage_count+1.
func (s *Selector) Select() types.BackchannelKind {
	transcript := s.manager.CurrentTurnTranscript()
	candidates := s.candidates(transcript)
	candidates = s.filterAntiRepetition(candidates)
	return s.weightedChoice(candidates)
}

func (s *Selector) candidates(transcript string) []types.BackchannelKind {
	analysis := s.analyzer.Analyze(transcript)
	if analysis.IsQuestion {
		return []types.BackchannelKind{types.BackchannelRight, types.BackchannelISee}
	}
	if containsAnyWord(strings.ToLower(transcript), s.emotion) {
		return []types.BackchannelKind{types.BackchannelYeah, types.BackchannelRight}
	}
	return []types.BackchannelKind{types.BackchannelMmhmm, types.BackchannelOkay, types.BackchannelISee}
}

// filterAntiRepetition removes the most recently used kind from candidates,
// and falls back to the full closed set if that empties it.
func (s *Selector) filterAntiRepetition(candidates []types.BackchannelKind) []types.BackchannelKind {
	recent := s.manager.RecentBackchannelKinds(2)
	if len(recent) == 0 {
		return candidates
	}
	exclude := recent[0]

	filtered := make([]types.BackchannelKind, 0, len(candidates))
	for _, k := range candidates {
		if k != exclude {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return types.AllBackchannelKinds
	}
	return filtered
}

// weightedChoice picks among candidates with weight 1/(usage_count+1), so
// rarely used kinds are favored without ever excluding a frequently used one.
func (s *Selector) weightedChoice(candidates []types.BackchannelKind) types.BackchannelKind {
	if len(candidates) == 1 {
		return candidates[0]
	}

	weights := make([]float64, len(candidates))
	var total float64
	for i, k := range candidates {
		w := 1.0 / float64(s.manager.BackchannelUsageCount(k)+1)
		weights[i] = w
		total += w
	}

	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}
