package backchannel

import (
	"sync"
	"time"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/pkg/types"
)

// pendingBackchannel is the clip awaiting its safe-zone window.
type pendingBackchannel struct {
	kind   types.BackchannelKind
	cancel chan struct{}
}

// TimingController holds a selected backchannel in a short safe zone,
// committing to playback only if the user does not resume speaking first.
// At most one backchannel is pending at a time: a new selection supersedes
// whatever is currently waiting.
type TimingController struct {
	cfg config.BackchannelConfig
	bus *bus.Bus

	mu      sync.Mutex
	pending *pendingBackchannel
}

// NewTimingController constructs a TimingController and subscribes it to
// BACKCHANNEL_TRIGGERED (selected) and SPEECH_STARTED.
func NewTimingController(cfg config.BackchannelConfig, b *bus.Bus) *TimingController {
	t := &TimingController{cfg: cfg, bus: b}
	if b != nil {
		b.Subscribe(bus.BackchannelTriggered, t.onTriggered)
		b.Subscribe(bus.SpeechStarted, t.onSpeechStarted)
	}
	return t
}

func (t *TimingController) onTriggered(ev bus.Event) {
	payload := ev.Payload.(bus.BackchannelTriggeredPayload)
	if !payload.KindSelected || payload.ProceedToPlay {
		// Only the Selector's enriched, not-yet-played event starts a safe
		// zone; the bare trigger and our own proceed_to_play re-emission
		// are not ours to act on.
		return
	}
	t.start(payload)
}

func (t *TimingController) start(payload bus.BackchannelTriggeredPayload) {
	cancel := make(chan struct{})

	t.mu.Lock()
	if t.pending != nil {
		close(t.pending.cancel)
	}
	t.pending = &pendingBackchannel{kind: payload.Kind, cancel: cancel}
	t.mu.Unlock()

	go t.runSafeZone(payload, cancel)
}

func (t *TimingController) runSafeZone(payload bus.BackchannelTriggeredPayload, cancel chan struct{}) {
	timer := time.NewTimer(time.Duration(t.cfg.SafeZoneMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-cancel:
		// Superseded by a new trigger or aborted by speech resuming;
		// whichever path closed cancel owns any resulting emission.
		return
	case <-timer.C:
	}

	t.mu.Lock()
	if t.pending == nil || t.pending.cancel != cancel {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Emit(bus.BackchannelTriggered, bus.BackchannelTriggeredPayload{
			TriggerStrength:   payload.TriggerStrength,
			SilenceDurationMs: payload.SilenceDurationMs,
			Kind:              payload.Kind,
			KindSelected:      true,
			ProceedToPlay:     true,
		})
	}
}

func (t *TimingController) onSpeechStarted(bus.Event) {
	t.mu.Lock()
	pending := t.pending
	if pending == nil {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()

	close(pending.cancel)
	if t.bus != nil {
		t.bus.Emit(bus.BackchannelAborted, bus.BackchannelAbortedPayload{
			Kind:   pending.kind,
			Reason: "user_resumed_speaking",
		})
	}
}
