// Package conversation implements the Conversation Manager: the single
// writer for conversation state, the transcript log, and backchannel
// history. Every other component holds read-only accessors onto it.
package conversation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/pkg/types"
)

// legalTransitions encodes the fixed transition table from the data model:
// a transition is legal only if the new state appears in the old state's set.
// AGENT_THINKING may also return straight to IDLE, for a turn that ends
// without a spoken reply (empty LLM output or no TTS clip).
var legalTransitions = map[types.ConversationState]map[types.ConversationState]struct{}{
	types.StateIdle: {
		types.StateUserSpeaking: {},
	},
	types.StateUserSpeaking: {
		types.StateEvaluatingPause: {},
		types.StateAgentThinking:   {},
	},
	types.StateEvaluatingPause: {
		types.StateUserSpeaking: {},
		types.StateAgentThinking: {},
	},
	types.StateAgentThinking: {
		types.StateAgentSpeaking: {},
		types.StateIdle:          {},
	},
	types.StateAgentSpeaking: {
		types.StateIdle: {},
	},
}

// Manager is the sole mutator of conversation state, the transcript log, and
// backchannel history. All mutators are serialized behind a single mutex.
type Manager struct {
	bus *bus.Bus

	// sessionID identifies the voice connection this Manager belongs to,
	// for correlating log lines and bus events across a session's lifetime.
	sessionID string

	mu sync.Mutex

	state types.ConversationState

	transcript []types.TranscriptSegment
	partial    *types.TranscriptSegment

	backchannels []types.BackchannelEvent

	turnSpeechStart     time.Time
	turnSilenceStart    time.Time
	turnSilenceDuration int
	turnUserTexts       []string
}

// New constructs a Manager in the IDLE state. If b is non-nil, the Manager
// subscribes itself to SPEECH_STARTED and SILENCE_DETECTED to keep its
// turn-local bookkeeping (speech/silence start times) in sync without every
// caller having to drive it explicitly.
func New(b *bus.Bus) *Manager {
	m := &Manager{bus: b, sessionID: uuid.New().String(), state: types.StateIdle}
	if b != nil {
		b.Subscribe(bus.SpeechStarted, m.onSpeechStarted)
		b.Subscribe(bus.SilenceDetected, m.onSilenceDetected)
	}
	return m
}

// SessionID returns the unique identifier generated for this Manager's
// session, stable for the Manager's lifetime.
func (m *Manager) SessionID() string {
	return m.sessionID
}

func (m *Manager) onSpeechStarted(ev bus.Event) {
	payload := ev.Payload.(bus.SpeechStartedPayload)
	m.mu.Lock()
	defer m.mu.Unlock()

	if payload.Resumed {
		m.transitionLocked(types.StateUserSpeaking)
		m.turnSilenceStart = time.Time{}
		m.turnSilenceDuration = 0
		return
	}

	m.transitionLocked(types.StateUserSpeaking)
	m.turnSpeechStart = time.Now()
	m.turnSilenceStart = time.Time{}
	m.turnSilenceDuration = 0
}

func (m *Manager) onSilenceDetected(ev bus.Event) {
	payload := ev.Payload.(bus.SilenceDetectedPayload)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.turnSilenceStart.IsZero() {
		m.turnSilenceStart = time.Now()
	}
	m.turnSilenceDuration = payload.SilenceDurationMs
}

// State returns the current conversation state.
func (m *Manager) State() types.ConversationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UpdateState attempts to transition to newState. Illegal transitions
// (including no-ops where old == new) are refused: the mutator logs and
// leaves state unchanged, matching the state-violation error kind, which is
// logged rather than propagated as an unwind.
func (m *Manager) UpdateState(newState types.ConversationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(newState)
}

func (m *Manager) transitionLocked(newState types.ConversationState) {
	old := m.state
	if old == newState {
		return
	}
	allowed, ok := legalTransitions[old]
	if !ok {
		slog.Warn("conversation: illegal state transition refused", "old", old, "new", newState)
		return
	}
	if _, ok := allowed[newState]; !ok {
		slog.Warn("conversation: illegal state transition refused", "old", old, "new", newState)
		return
	}
	m.state = newState
	if m.bus != nil {
		m.bus.Emit(bus.StateChanged, bus.StateChangedPayload{Old: old, New: newState})
	}
}

// AddTranscript appends text as a final user segment. It satisfies
// transcribe.TranscriptSink: every suffix the transcription coordinator
// accepts is final for the conversation log.
func (m *Manager) AddTranscript(text string) {
	m.AddTranscriptSegment(text, true, types.SpeakerUser)
}

// AddTranscriptSegment is the general add_transcript mutator. A non-final
// segment overwrites the previously held partial rather than appending;
// final segments append to the append-only log.
func (m *Manager) AddTranscriptSegment(text string, isFinal bool, speaker types.Speaker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg := types.TranscriptSegment{Text: text, Timestamp: time.Now(), IsFinal: isFinal, Speaker: speaker}
	if !isFinal {
		m.partial = &seg
		return
	}
	m.transcript = append(m.transcript, seg)
	if speaker == types.SpeakerUser {
		m.turnUserTexts = append(m.turnUserTexts, text)
	}
}

// RecordBackchannel appends a backchannel event. Must only be called after
// the player has committed audio to the mixer.
func (m *Manager) RecordBackchannel(kind types.BackchannelKind, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backchannels = append(m.backchannels, types.BackchannelEvent{
		ID: uuid.New().String(), Kind: kind, Timestamp: time.Now(), WasSuccessful: success,
	})
}

// StartUserSpeech marks the current turn's speech start time, if not already
// set. Exposed for callers that drive the Manager directly rather than
// through the bus subscription installed by New.
func (m *Manager) StartUserSpeech() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnSpeechStart.IsZero() {
		m.turnSpeechStart = time.Now()
	}
}

// StartSilence marks the current turn's silence start time, if not already
// set. silence_start_time stays non-null for the duration of
// SILENCE_AFTER_SPEECH and is cleared by ResetTurn or a fresh speech start.
func (m *Manager) StartSilence() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnSilenceStart.IsZero() {
		m.turnSilenceStart = time.Now()
	}
}

// UpdateSilenceDuration records the latest cumulative silence duration.
func (m *Manager) UpdateSilenceDuration(ms int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnSilenceDuration = ms
}

// ResetTurn clears all turn-local counters. It does not itself change
// conversation state.
func (m *Manager) ResetTurn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnSpeechStart = time.Time{}
	m.turnSilenceStart = time.Time{}
	m.turnSilenceDuration = 0
	m.turnUserTexts = nil
}

// CurrentTurnTranscript joins every final user segment added since the last
// ResetTurn, the text the Linguistic Analyzer and Backchannel Trigger score.
func (m *Manager) CurrentTurnTranscript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.turnUserTexts, " ")
}

// TurnSpeechDurationMs returns the duration between the turn's speech start
// and its silence start (frozen once silence begins), or the duration up to
// now if speech is still ongoing. Zero if no speech has started this turn.
func (m *Manager) TurnSpeechDurationMs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnSpeechStart.IsZero() {
		return 0
	}
	end := time.Now()
	if !m.turnSilenceStart.IsZero() {
		end = m.turnSilenceStart
	}
	return int(end.Sub(m.turnSpeechStart).Milliseconds())
}

// CurrentSilenceDurationMs returns the most recently recorded cumulative
// silence duration for the current turn.
func (m *Manager) CurrentSilenceDurationMs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turnSilenceDuration
}

// LastBackchannelTime returns the timestamp of the most recent backchannel
// event, and false if none has occurred yet.
func (m *Manager) LastBackchannelTime() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.backchannels) == 0 {
		return time.Time{}, false
	}
	return m.backchannels[len(m.backchannels)-1].Timestamp, true
}

// RecentBackchannelKinds returns the last n backchannel kinds played, most
// recent first. Used by the selector's anti-repetition filter.
func (m *Manager) RecentBackchannelKinds(n int) []types.BackchannelKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]types.BackchannelKind, 0, n)
	for i := len(m.backchannels) - 1; i >= 0 && len(kinds) < n; i-- {
		kinds = append(kinds, m.backchannels[i].Kind)
	}
	return kinds
}

// BackchannelUsageCount returns how many times kind has been played in
// total, used for the selector's inverse-usage-count weighting.
func (m *Manager) BackchannelUsageCount(kind types.BackchannelKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ev := range m.backchannels {
		if ev.Kind == kind {
			count++
		}
	}
	return count
}

// Transcript returns a copy of the final-segment conversation log.
func (m *Manager) Transcript() []types.TranscriptSegment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TranscriptSegment, len(m.transcript))
	copy(out, m.transcript)
	return out
}
