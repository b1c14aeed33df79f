package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/turnengine/pkg/provider/llm"
	"github.com/MrWong99/turnengine/pkg/provider/stt"
	"github.com/MrWong99/turnengine/pkg/provider/tts"
	vadprovider "github.com/MrWong99/turnengine/pkg/provider/vad"
	"github.com/MrWong99/turnengine/pkg/types"
)

// The providers in this file are local, network-free stand-ins from which
// main.go builds each session's session.Providers set. Real deployments wire an actual STT/TTS/LLM/VAD
// backend behind these same interfaces; this binary ships without one since
// the engine treats every backend as an opaque external collaborator.

var (
	_ vadprovider.Engine        = (*energyVADEngine)(nil)
	_ vadprovider.SessionHandle = (*energyVADSession)(nil)
	_ stt.Provider              = silentSTTProvider{}
	_ tts.Provider              = silentTTSProvider{}
	_ llm.Provider              = echoLLMProvider{}
)

// energyVADEngine classifies a frame as speech when its RMS energy exceeds a
// fixed threshold. It has no hidden state to reset beyond the threshold
// itself, so sessions are stateless.
type energyVADEngine struct {
	threshold float64
}

func newEnergyVADEngine() *energyVADEngine {
	return &energyVADEngine{threshold: 0.02}
}

func (e *energyVADEngine) NewSession(cfg vadprovider.Config) (vadprovider.SessionHandle, error) {
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("demo vad: frame size must be positive, got %d", cfg.FrameSize)
	}
	return &energyVADSession{frameSize: cfg.FrameSize, threshold: e.threshold}, nil
}

type energyVADSession struct {
	frameSize int
	threshold float64
	closed    bool
}

func (s *energyVADSession) ProcessFrame(chunk []float32) (vadprovider.Event, error) {
	if s.closed {
		return vadprovider.Event{}, fmt.Errorf("demo vad: session closed")
	}
	if len(chunk) != s.frameSize {
		return vadprovider.Event{}, fmt.Errorf("demo vad: expected %d samples, got %d", s.frameSize, len(chunk))
	}
	var sumSquares float64
	for _, v := range chunk {
		sumSquares += float64(v) * float64(v)
	}
	rms := math.Sqrt(sumSquares / float64(len(chunk)))
	probability := rms / s.threshold
	if probability > 1 {
		probability = 1
	}
	return vadprovider.Event{Probability: probability}, nil
}

func (s *energyVADSession) Reset() {}

func (s *energyVADSession) Close() error {
	s.closed = true
	return nil
}

// silentSTTProvider never recognizes speech. It stands in for a real STT
// backend until one is wired; every chunk is treated as silence, which the
// Transcription Coordinator already handles as a no-op.
type silentSTTProvider struct{}

func (silentSTTProvider) Transcribe(ctx context.Context, wav []byte) (stt.Result, error) {
	return stt.Result{Ok: false}, nil
}

// silentTTSProvider returns a short silent clip for every request, so the
// Response Coordinator's playback-wait and mixer submission paths run
// end-to-end without a real voice.
type silentTTSProvider struct {
	sampleRate int
}

func (p silentTTSProvider) Synthesize(ctx context.Context, text string) (tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return tts.Result{Ok: false}, nil
	}
	samples := p.sampleRate / 2 // 500ms of silence
	pcm := make([]byte, samples*2)
	return tts.Result{PCM: pcm, Ok: true}, nil
}

// echoLLMProvider replies with a fixed acknowledgement, split into
// word-sized chunks so the streaming path actually exercises multiple
// RESPONSE_CHUNK events.
type echoLLMProvider struct{}

func (echoLLMProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	reply := "I hear you, please go on."
	words := strings.Fields(reply)
	out := make(chan llm.Chunk, len(words))
	go func() {
		defer close(out)
		for i, w := range words {
			text := w
			if i < len(words)-1 {
				text += " "
			}
			chunk := llm.Chunk{Text: text}
			if i == len(words)-1 {
				chunk.FinishReason = "stop"
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (echoLLMProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "I hear you, please go on."}, nil
}

func (echoLLMProvider) Capabilities() types.ModelCapabilities {
	return types.ModelCapabilities{ContextWindow: 8192, MaxOutputTokens: 512, SupportsStreaming: true}
}
