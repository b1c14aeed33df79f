// Package response implements the Response Coordinator: the component that
// turns a detected end-of-turn into a spoken reply by sequencing the LLM and
// TTS collaborators and the agent-speech half of the Audio Mixer.
package response

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/pkg/provider/llm"
	"github.com/MrWong99/turnengine/pkg/provider/tts"
	"github.com/MrWong99/turnengine/pkg/types"
)

// Mixer is the minimum capability the Coordinator needs from the Audio
// Mixer: submitting a synthesized clip to its primary (agent speech)
// channel. Mirrors backchannel.Mixer's shape for the secondary channel.
type Mixer interface {
	SubmitPrimary(samples []float32)
}

// Coordinator subscribes to TURN_ENDED and drives the LLM -> TTS -> mixer
// pipeline for one agent reply. It has no cancellation path: once a turn has
// ended, the pipeline runs to completion even if the user starts speaking
// again in the meantime.
type Coordinator struct {
	cfg     config.ResponseConfig
	llm     llm.Provider
	tts     tts.Provider
	mixer   Mixer
	manager *conversation.Manager
	bus     *bus.Bus
}

// New constructs a Coordinator and subscribes it to TURN_ENDED.
func New(cfg config.ResponseConfig, llmProvider llm.Provider, ttsProvider tts.Provider, mixer Mixer, manager *conversation.Manager, b *bus.Bus) *Coordinator {
	c := &Coordinator{cfg: cfg, llm: llmProvider, tts: ttsProvider, mixer: mixer, manager: manager, bus: b}
	if b != nil {
		b.Subscribe(bus.TurnEnded, c.onTurnEnded)
	}
	return c
}

func (c *Coordinator) onTurnEnded(ev bus.Event) {
	payload := ev.Payload.(bus.TurnEndedPayload)
	c.Respond(context.Background(), payload.Transcript)
}

// Respond runs one full reply cycle for lastUtterance: LLM generation, TTS
// synthesis, mixer submission, transcript bookkeeping, and the return to
// IDLE. Exposed directly so tests and alternative wiring can drive it
// without going through the bus.
func (c *Coordinator) Respond(ctx context.Context, lastUtterance string) {
	c.manager.UpdateState(types.StateAgentThinking)

	req := llm.CompletionRequest{
		Messages:     c.buildMessages(lastUtterance),
		SystemPrompt: c.cfg.SystemPrompt,
		Temperature:  c.cfg.Temperature,
		MaxTokens:    c.cfg.MaxTokens,
	}

	text, ok := c.streamCompletion(ctx, req)
	if !ok || strings.TrimSpace(text) == "" {
		c.endTurn()
		return
	}

	result, err := c.tts.Synthesize(ctx, text)
	if err != nil || !result.Ok {
		slog.Warn("response: tts synthesis failed, ending turn with no spoken reply", "error", err)
		c.endTurn()
		return
	}

	c.manager.UpdateState(types.StateAgentSpeaking)

	samples := pcmToFloat32(result.PCM)
	if c.mixer != nil {
		c.mixer.SubmitPrimary(samples)
	}

	c.waitForPlayback(len(samples))

	c.manager.AddTranscriptSegment(text, true, types.SpeakerAgent)

	if c.bus != nil {
		c.bus.Emit(bus.ResponseEnded, bus.ResponseEndedPayload{Text: text})
	}

	c.endTurn()
}

// buildMessages assembles the full conversation log plus the last user
// utterance into the message list the LLM collaborator expects. The last
// utterance is included explicitly because the transcript segment for the
// turn that just ended may not yet be committed by the caller.
func (c *Coordinator) buildMessages(lastUtterance string) []types.Message {
	segments := c.manager.Transcript()
	messages := make([]types.Message, 0, len(segments)+1)
	for _, seg := range segments {
		role := "user"
		if seg.Speaker == types.SpeakerAgent {
			role = "assistant"
		}
		messages = append(messages, types.Message{Role: role, Content: seg.Text})
	}
	if strings.TrimSpace(lastUtterance) != "" {
		messages = append(messages, types.Message{Role: "user", Content: lastUtterance})
	}
	return messages
}

// streamCompletion emits RESPONSE_GENERATING, then one RESPONSE_CHUNK per
// streamed chunk, and returns the accumulated text. ok is false if the
// stream could not be started at all.
func (c *Coordinator) streamCompletion(ctx context.Context, req llm.CompletionRequest) (string, bool) {
	if c.bus != nil {
		c.bus.Emit(bus.ResponseGenerating, bus.ResponseGeneratingPayload{})
	}

	chunks, err := c.llm.StreamCompletion(ctx, req)
	if err != nil {
		slog.Warn("response: llm stream failed to start", "error", err)
		return "", false
	}

	var buf strings.Builder
	first := true
	for chunk := range chunks {
		if first {
			if c.bus != nil {
				c.bus.Emit(bus.ResponseStarted, bus.ResponseStartedPayload{})
			}
			first = false
		}
		buf.WriteString(chunk.Text)
		if c.bus != nil {
			c.bus.Emit(bus.ResponseChunk, bus.ResponseChunkPayload{Text: chunk.Text})
		}
	}
	return buf.String(), true
}

// waitForPlayback sleeps for the real-time duration a clip of the given
// sample count would take to play back, at the configured playback sample
// rate, mono.
func (c *Coordinator) waitForPlayback(sampleCount int) {
	if sampleCount == 0 || c.cfg.PlaybackSampleRate <= 0 {
		return
	}
	duration := time.Duration(sampleCount) * time.Second / time.Duration(c.cfg.PlaybackSampleRate)
	time.Sleep(duration)
}

func (c *Coordinator) endTurn() {
	c.manager.ResetTurn()
	c.manager.UpdateState(types.StateIdle)
}

// pcmToFloat32 converts 16-bit little-endian mono PCM, as returned by the
// TTS collaborator, into the mixer's float32 sample format.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	return samples
}
