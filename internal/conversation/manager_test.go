package conversation

import (
	"testing"
	"time"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateState_LegalTransitionSucceedsAndEmits(t *testing.T) {
	b := bus.New(10)
	var got []bus.StateChangedPayload
	b.Subscribe(bus.StateChanged, func(e bus.Event) {
		got = append(got, e.Payload.(bus.StateChangedPayload))
	})

	m := New(b)
	m.UpdateState(types.StateUserSpeaking)

	require.Len(t, got, 1)
	assert.Equal(t, types.StateIdle, got[0].Old)
	assert.Equal(t, types.StateUserSpeaking, got[0].New)
	assert.Equal(t, types.StateUserSpeaking, m.State())
}

func TestUpdateState_IllegalTransitionRefusedAndLeavesStateUnchanged(t *testing.T) {
	b := bus.New(10)
	var events int
	b.Subscribe(bus.StateChanged, func(e bus.Event) { events++ })

	m := New(b)
	// IDLE -> AGENT_SPEAKING is not in the legal transition table.
	m.UpdateState(types.StateAgentSpeaking)

	assert.Equal(t, types.StateIdle, m.State())
	assert.Zero(t, events)
}

func TestUpdateState_NoOpWhenOldEqualsNewEmitsNoEvent(t *testing.T) {
	b := bus.New(10)
	var events int
	b.Subscribe(bus.StateChanged, func(e bus.Event) { events++ })

	m := New(b)
	m.UpdateState(types.StateIdle)

	assert.Zero(t, events)
}

func TestUpdateState_FullLegalPathSucceeds(t *testing.T) {
	m := New(nil)
	m.UpdateState(types.StateUserSpeaking)
	m.UpdateState(types.StateEvaluatingPause)
	m.UpdateState(types.StateAgentThinking)
	m.UpdateState(types.StateAgentSpeaking)
	m.UpdateState(types.StateIdle)
	assert.Equal(t, types.StateIdle, m.State())
}

func TestAddTranscript_AppendsFinalUserSegmentAndTurnText(t *testing.T) {
	m := New(nil)
	m.AddTranscript("hello there")
	m.AddTranscript("friend")

	log := m.Transcript()
	require.Len(t, log, 2)
	assert.Equal(t, "hello there", log[0].Text)
	assert.True(t, log[0].IsFinal)
	assert.Equal(t, types.SpeakerUser, log[0].Speaker)
	assert.Equal(t, "hello there friend", m.CurrentTurnTranscript())
}

func TestAddTranscriptSegment_PartialOverwritesRatherThanAppending(t *testing.T) {
	m := New(nil)
	m.AddTranscriptSegment("partial one", false, types.SpeakerUser)
	m.AddTranscriptSegment("partial two", false, types.SpeakerUser)

	assert.Empty(t, m.Transcript())
}

func TestAddTranscriptSegment_AgentSegmentDoesNotAffectTurnTranscript(t *testing.T) {
	m := New(nil)
	m.AddTranscriptSegment("sure, here you go", true, types.SpeakerAgent)
	assert.Empty(t, m.CurrentTurnTranscript())
	assert.Len(t, m.Transcript(), 1)
}

func TestRecordBackchannel_TracksUsageAndRecency(t *testing.T) {
	m := New(nil)
	m.RecordBackchannel(types.BackchannelMmhmm, true)
	m.RecordBackchannel(types.BackchannelMmhmm, true)
	m.RecordBackchannel(types.BackchannelOkay, true)

	assert.Equal(t, 2, m.BackchannelUsageCount(types.BackchannelMmhmm))
	assert.Equal(t, 1, m.BackchannelUsageCount(types.BackchannelOkay))
	assert.Equal(t, []types.BackchannelKind{types.BackchannelOkay, types.BackchannelMmhmm}, m.RecentBackchannelKinds(2))

	_, ok := m.LastBackchannelTime()
	assert.True(t, ok)
}

func TestLastBackchannelTime_FalseWhenNoneRecorded(t *testing.T) {
	m := New(nil)
	_, ok := m.LastBackchannelTime()
	assert.False(t, ok)
}

func TestResetTurn_ClearsCountersAndLeavesStateUnchanged(t *testing.T) {
	m := New(nil)
	m.StartUserSpeech()
	m.StartSilence()
	m.UpdateSilenceDuration(500)
	m.AddTranscript("some words here")

	m.ResetTurn()

	assert.Equal(t, types.StateIdle, m.State())
	assert.Zero(t, m.TurnSpeechDurationMs())
	assert.Zero(t, m.CurrentSilenceDurationMs())
	assert.Empty(t, m.CurrentTurnTranscript())
}

func TestBusWiring_SpeechStartedDrivesStateAndSpeechStart(t *testing.T) {
	b := bus.New(10)
	m := New(b)

	b.Emit(bus.SpeechStarted, bus.SpeechStartedPayload{Resumed: false})
	time.Sleep(2 * time.Millisecond)

	assert.Equal(t, types.StateUserSpeaking, m.State())
	assert.NotZero(t, m.TurnSpeechDurationMs())
}

func TestBusWiring_ResumedSpeechReturnsFromEvaluatingPauseAndClearsSilence(t *testing.T) {
	b := bus.New(10)
	m := New(b)

	b.Emit(bus.SpeechStarted, bus.SpeechStartedPayload{Resumed: false})
	m.UpdateState(types.StateEvaluatingPause)
	b.Emit(bus.SilenceDetected, bus.SilenceDetectedPayload{SilenceDurationMs: 500})
	require.Equal(t, 500, m.CurrentSilenceDurationMs())

	b.Emit(bus.SpeechStarted, bus.SpeechStartedPayload{Resumed: true})

	assert.Equal(t, types.StateUserSpeaking, m.State())
	assert.Zero(t, m.CurrentSilenceDurationMs())
}

func TestBusWiring_SilenceDetectedSetsSilenceStartOnlyOnce(t *testing.T) {
	b := bus.New(10)
	m := New(b)
	b.Emit(bus.SpeechStarted, bus.SpeechStartedPayload{Resumed: false})

	b.Emit(bus.SilenceDetected, bus.SilenceDetectedPayload{SilenceDurationMs: 150})
	firstDuration := m.TurnSpeechDurationMs()
	time.Sleep(2 * time.Millisecond)
	b.Emit(bus.SilenceDetected, bus.SilenceDetectedPayload{SilenceDurationMs: 300})

	// Speech duration is frozen at silence start, so it should not grow
	// across the second heartbeat even though wall-clock time passed.
	assert.Equal(t, firstDuration, m.TurnSpeechDurationMs())
	assert.Equal(t, 300, m.CurrentSilenceDurationMs())
}
