package bus

import (
	"time"

	"github.com/MrWong99/turnengine/pkg/types"
)

// Event is a single message travelling across the bus. Payload holds one of
// the typed structs below, chosen by Kind — subscribers type-assert rather
// than inspecting Payload structurally.
type Event struct {
	Kind      Kind
	Payload   any
	Timestamp time.Time
}

// AudioChunkReceivedPayload is emitted by the Audio Pipeline for every
// ingested frame.
type AudioChunkReceivedPayload struct {
	SampleCount int
}

// SpeechStartedPayload is emitted by the VAD Processor when speech begins or
// resumes.
type SpeechStartedPayload struct {
	Resumed bool
}

// SilenceDetectedPayload is emitted by the VAD Processor, once on the
// SPEAKING→SILENCE_AFTER_SPEECH edge and then repeatedly as a heartbeat while
// silence continues.
type SilenceDetectedPayload struct {
	SilenceDurationMs int
	SpeechDurationMs  int
}

// SpeechEndedPayload is currently unused by any emitter but reserved for the
// closed event-kind set; present for symmetry with SpeechStarted.
type SpeechEndedPayload struct {
	SpeechDurationMs int
}

// TranscriptPayload carries a partial or final transcript segment.
type TranscriptPayload struct {
	Segment types.TranscriptSegment
}

// TurnScores holds the three component scores and their fusion, as computed
// by the Turn Detector.
type TurnScores struct {
	SilenceScore    float64
	LinguisticScore float64
	ContextScore    float64
	FinalScore      float64
}

// TurnEvaluationPayload is emitted on every Turn Detector evaluation,
// regardless of outcome.
type TurnEvaluationPayload struct {
	Scores            TurnScores
	SilenceDurationMs int
}

// TurnEndedPayload is emitted when the fused turn score crosses the
// end-of-turn threshold.
type TurnEndedPayload struct {
	Transcript        string
	Scores            TurnScores
	SilenceDurationMs int
}

// BackchannelTriggeredPayload is emitted first by the Trigger Detector (Kind
// unselected), re-emitted enriched by the Selector, and re-emitted again by
// the Timing Controller once the safe zone elapses.
type BackchannelTriggeredPayload struct {
	TriggerStrength   float64
	SilenceDurationMs int
	Kind              types.BackchannelKind
	KindSelected      bool
	ProceedToPlay     bool
}

// BackchannelPlayedPayload is emitted once a backchannel clip is submitted
// to the mixer.
type BackchannelPlayedPayload struct {
	Kind types.BackchannelKind
}

// BackchannelAbortedPayload is emitted when a pending backchannel is
// cancelled before it plays.
type BackchannelAbortedPayload struct {
	Kind   types.BackchannelKind
	Reason string
}

// ResponseGeneratingPayload marks the start of LLM streaming.
type ResponseGeneratingPayload struct{}

// ResponseStartedPayload marks the first chunk of an LLM stream.
type ResponseStartedPayload struct{}

// ResponseChunkPayload carries one incremental piece of LLM output.
type ResponseChunkPayload struct {
	Text string
}

// ResponseEndedPayload marks the end of a full response cycle, including TTS
// synthesis and mixer submission.
type ResponseEndedPayload struct {
	Text string
}

// StateChangedPayload is emitted on every Conversation Manager state
// mutation.
type StateChangedPayload struct {
	Old types.ConversationState
	New types.ConversationState
}
