package backchannel

import (
	"log/slog"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/pkg/types"
)

// Mixer is the minimum capability the Player needs from the Audio Mixer:
// submitting a clip to its secondary (backchannel) channel. The mixer owns
// the fixed 50% secondary-channel weighting; the Player hands over raw
// samples.
type Mixer interface {
	SubmitSecondary(samples []float32)
}

// Player submits the selected clip to the mixer once the safe zone has
// elapsed, and records the event. It never touches conversation state: per
// the data model, playing a backchannel must not end the user's turn.
type Player struct {
	library *Library
	mixer   Mixer
	manager *conversation.Manager
	bus     *bus.Bus
}

// NewPlayer constructs a Player and subscribes it to BACKCHANNEL_TRIGGERED.
func NewPlayer(library *Library, mixer Mixer, manager *conversation.Manager, b *bus.Bus) *Player {
	p := &Player{library: library, mixer: mixer, manager: manager, bus: b}
	if b != nil {
		b.Subscribe(bus.BackchannelTriggered, p.onTriggered)
	}
	return p
}

func (p *Player) onTriggered(ev bus.Event) {
	payload := ev.Payload.(bus.BackchannelTriggeredPayload)
	if !payload.ProceedToPlay {
		return
	}
	p.Play(payload.Kind)
}

// Play submits kind's pre-decoded clip to the mixer's secondary channel and
// records the play. Exposed directly so tests and alternative wiring can
// drive it without going through the bus.
func (p *Player) Play(kind types.BackchannelKind) {
	clip, ok := p.library.Get(kind)
	if !ok {
		slog.Warn("backchannel: no audio loaded for kind", "kind", kind)
		return
	}
	if p.mixer != nil {
		p.mixer.SubmitSecondary(clip)
	}

	// Always recorded true: there is no feedback signal that measures
	// whether the user actually continued speaking after the clip played.
	p.manager.RecordBackchannel(kind, true)

	if p.bus != nil {
		p.bus.Emit(bus.BackchannelPlayed, bus.BackchannelPlayedPayload{Kind: kind})
	}
}
