package response

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/pkg/provider/llm"
	llmmock "github.com/MrWong99/turnengine/pkg/provider/llm/mock"
	"github.com/MrWong99/turnengine/pkg/provider/tts"
	ttsmock "github.com/MrWong99/turnengine/pkg/provider/tts/mock"
	"github.com/MrWong99/turnengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMixer struct {
	submitted [][]float32
}

func (f *fakeMixer) SubmitPrimary(samples []float32) {
	f.submitted = append(f.submitted, samples)
}

func testResponseConfig() config.ResponseConfig {
	return config.ResponseConfig{
		SystemPrompt:       "be helpful",
		Temperature:        0.5,
		MaxTokens:          256,
		PlaybackSampleRate: 16000,
	}
}

// pcmFor builds n samples of 16-bit PCM at value 0 so waitForPlayback's
// sleep stays effectively instantaneous in tests.
func pcmFor(n int) []byte {
	return make([]byte, n*2)
}

func newHarness() (*Coordinator, *llmmock.Provider, *ttsmock.Provider, *fakeMixer, *conversation.Manager, *bus.Bus) {
	b := bus.New(20)
	m := conversation.New(b)
	m.UpdateState(types.StateUserSpeaking)
	llmProv := &llmmock.Provider{}
	ttsProv := &ttsmock.Provider{}
	mixer := &fakeMixer{}
	c := New(testResponseConfig(), llmProv, ttsProv, mixer, m, b)
	return c, llmProv, ttsProv, mixer, m, b
}

func TestRespond_FullCycleSynthesizesAndReturnsToIdle(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, b := newHarness()
	llmProv.StreamChunks = []llm.Chunk{
		{Text: "Hello "}, {Text: "there", FinishReason: "stop"},
	}
	ttsProv.Result = tts.Result{PCM: pcmFor(10), Ok: true}

	var chunks []string
	var ended []bus.ResponseEndedPayload
	b.Subscribe(bus.ResponseChunk, func(e bus.Event) {
		chunks = append(chunks, e.Payload.(bus.ResponseChunkPayload).Text)
	})
	b.Subscribe(bus.ResponseEnded, func(e bus.Event) {
		ended = append(ended, e.Payload.(bus.ResponseEndedPayload))
	})

	c.Respond(context.Background(), "what's up")

	assert.Equal(t, []string{"Hello ", "there"}, chunks)
	require.Len(t, ttsProv.Calls, 1)
	assert.Equal(t, "Hello there", ttsProv.Calls[0].Text)
	require.Len(t, mixer.submitted, 1)
	assert.Len(t, mixer.submitted[0], 10)

	require.Len(t, ended, 1)
	assert.Equal(t, "Hello there", ended[0].Text)

	assert.Equal(t, types.StateIdle, m.State())
	transcript := m.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "Hello there", transcript[0].Text)
	assert.Equal(t, types.SpeakerAgent, transcript[0].Speaker)
}

func TestRespond_IncludesLastUtteranceAndPriorTranscriptInRequest(t *testing.T) {
	c, llmProv, ttsProv, _, m, _ := newHarness()
	m.AddTranscriptSegment("earlier user line", true, types.SpeakerUser)
	llmProv.StreamChunks = []llm.Chunk{{Text: "ok", FinishReason: "stop"}}
	ttsProv.Result = tts.Result{PCM: pcmFor(1), Ok: true}

	c.Respond(context.Background(), "the newest line")

	require.Len(t, llmProv.StreamCalls, 1)
	req := llmProv.StreamCalls[0].Req
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "earlier user line", req.Messages[0].Content)
	assert.Equal(t, "the newest line", req.Messages[1].Content)
	assert.Equal(t, "be helpful", req.SystemPrompt)
}

func TestRespond_EmptyLLMOutputShortCircuitsToIdleWithoutTTS(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, _ := newHarness()
	llmProv.StreamChunks = []llm.Chunk{{Text: "", FinishReason: "stop"}}

	c.Respond(context.Background(), "hello")

	assert.Empty(t, ttsProv.Calls)
	assert.Empty(t, mixer.submitted)
	assert.Equal(t, types.StateIdle, m.State())
	assert.Empty(t, m.Transcript())
}

func TestRespond_LLMStreamErrorShortCircuitsToIdle(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, _ := newHarness()
	llmProv.StreamErr = assert.AnError

	c.Respond(context.Background(), "hello")

	assert.Empty(t, ttsProv.Calls)
	assert.Empty(t, mixer.submitted)
	assert.Equal(t, types.StateIdle, m.State())
}

func TestRespond_TTSFailureEndsTurnWithNoSpokenReply(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, _ := newHarness()
	llmProv.StreamChunks = []llm.Chunk{{Text: "hi", FinishReason: "stop"}}
	ttsProv.Result = tts.Result{Ok: false}

	c.Respond(context.Background(), "hello")

	assert.Empty(t, mixer.submitted)
	assert.Equal(t, types.StateIdle, m.State())
	assert.Empty(t, m.Transcript())
}

func TestRespond_TTSErrorEndsTurnWithNoSpokenReply(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, _ := newHarness()
	llmProv.StreamChunks = []llm.Chunk{{Text: "hi", FinishReason: "stop"}}
	ttsProv.Err = assert.AnError

	c.Respond(context.Background(), "hello")

	assert.Empty(t, mixer.submitted)
	assert.Equal(t, types.StateIdle, m.State())
}

func TestRespond_EmitsGeneratingBeforeFirstChunkAndStartedOnFirstChunk(t *testing.T) {
	c, llmProv, ttsProv, _, _, b := newHarness()
	llmProv.StreamChunks = []llm.Chunk{{Text: "a", FinishReason: "stop"}}
	ttsProv.Result = tts.Result{PCM: pcmFor(1), Ok: true}

	var order []string
	b.Subscribe(bus.ResponseGenerating, func(bus.Event) { order = append(order, "generating") })
	b.Subscribe(bus.ResponseStarted, func(bus.Event) { order = append(order, "started") })
	b.Subscribe(bus.ResponseChunk, func(bus.Event) { order = append(order, "chunk") })

	c.Respond(context.Background(), "hello")

	assert.Equal(t, []string{"generating", "started", "chunk"}, order)
}

func TestOnTurnEnded_DrivesRespondFromBusEvent(t *testing.T) {
	c, llmProv, ttsProv, mixer, m, b := newHarness()
	llmProv.StreamChunks = []llm.Chunk{{Text: "hi", FinishReason: "stop"}}
	ttsProv.Result = tts.Result{PCM: pcmFor(1), Ok: true}

	b.Emit(bus.TurnEnded, bus.TurnEndedPayload{Transcript: "hello there"})

	require.Len(t, ttsProv.Calls, 1)
	require.Len(t, mixer.submitted, 1)
	assert.Equal(t, types.StateIdle, m.State())
	_ = c
}

func TestWaitForPlayback_SleepsApproximatelySampleDuration(t *testing.T) {
	c := &Coordinator{cfg: config.ResponseConfig{PlaybackSampleRate: 16000}}
	start := time.Now()
	c.waitForPlayback(1600) // 100ms at 16kHz
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestPCMToFloat32_ConvertsKnownSamples(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0xC0}
	samples := pcmToFloat32(pcm)
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-4)
	assert.InDelta(t, -0.5, samples[2], 1e-4)
}
