package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmit_DeliversInSubscriptionOrder(t *testing.T) {
	b := New(10)
	var order []string
	b.Subscribe(SilenceDetected, func(Event) { order = append(order, "first") })
	b.Subscribe(SilenceDetected, func(Event) { order = append(order, "second") })

	b.Emit(SilenceDetected, SilenceDetectedPayload{SilenceDurationMs: 400})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmit_OnlyDeliversToSubscribedKind(t *testing.T) {
	b := New(10)
	called := false
	b.Subscribe(SpeechStarted, func(Event) { called = true })

	b.Emit(SilenceDetected, SilenceDetectedPayload{})

	assert.False(t, called)
}

func TestEmit_PanicInListenerDoesNotStopDelivery(t *testing.T) {
	b := New(10)
	secondCalled := false
	b.Subscribe(SpeechStarted, func(Event) { panic("boom") })
	b.Subscribe(SpeechStarted, func(Event) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Emit(SpeechStarted, SpeechStartedPayload{})
	})
	assert.True(t, secondCalled)
}

func TestHistory_BoundedRing(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Emit(AudioChunkReceived, AudioChunkReceivedPayload{SampleCount: i})
	}

	hist := b.History()
	assert.Len(t, hist, 3)
	// Oldest retained should be index 2 (0,1 evicted), newest is index 4.
	assert.Equal(t, 2, hist[0].Payload.(AudioChunkReceivedPayload).SampleCount)
	assert.Equal(t, 4, hist[2].Payload.(AudioChunkReceivedPayload).SampleCount)
}

func TestHistory_UnderCapacityPreservesOrder(t *testing.T) {
	b := New(5)
	b.Emit(AudioChunkReceived, AudioChunkReceivedPayload{SampleCount: 1})
	b.Emit(AudioChunkReceived, AudioChunkReceivedPayload{SampleCount: 2})

	hist := b.History()
	assert.Len(t, hist, 2)
	assert.Equal(t, 1, hist[0].Payload.(AudioChunkReceivedPayload).SampleCount)
	assert.Equal(t, 2, hist[1].Payload.(AudioChunkReceivedPayload).SampleCount)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SILENCE_DETECTED", SilenceDetected.String())
	assert.Equal(t, "TURN_ENDED", TurnEnded.String())
	assert.Equal(t, "UNKNOWN", Kind(999).String())
}
