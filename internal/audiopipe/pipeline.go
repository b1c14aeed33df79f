package audiopipe

import (
	"log/slog"
	"sync"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/pkg/types"
)

// VADChunkSamples is the fixed size of chunks yielded by DrainVADChunks, in
// samples at the canonical sample rate (30ms at 16kHz).
const VADChunkSamples = 480

// Pipeline owns the ingress ring and the two chunking accumulators that feed
// the VAD Processor and the Streaming Transcription Coordinator. It is the
// sole owner of these buffers; callers interact through its exported
// methods only.
type Pipeline struct {
	cfg config.AudioConfig
	bus *bus.Bus

	mu              sync.Mutex
	ring            *Ring
	vadAcc          []float32
	transcriberAcc  []float32
	transcriberStep int
	transcriberWin  int
}

// New constructs a Pipeline sized from cfg. b may be nil if AUDIO_CHUNK_RECEIVED
// need not be published (e.g. in isolated unit tests).
func New(cfg config.AudioConfig, b *bus.Bus) *Pipeline {
	ringCap := int(cfg.IngressBufferSeconds * float64(cfg.SampleRate))
	win := int(cfg.TranscriberChunkDurationS * float64(cfg.SampleRate))
	step := win - int(cfg.TranscriberOverlapS*float64(cfg.SampleRate))
	return &Pipeline{
		cfg:             cfg,
		bus:             b,
		ring:            NewRing(ringCap),
		transcriberWin:  win,
		transcriberStep: step,
	}
}

// ReceiveAudio normalizes frame to mono at the pipeline's canonical sample
// rate, appends it to the ingress ring and both accumulators, and publishes
// AUDIO_CHUNK_RECEIVED. Malformed frames (no samples, non-positive sample
// rate or channel count) are dropped and logged.
func (p *Pipeline) ReceiveAudio(frame types.AudioFrame) {
	if len(frame.Samples) == 0 || frame.SampleRate <= 0 || frame.Channels <= 0 {
		slog.Warn("audiopipe: dropping malformed frame",
			"samples", len(frame.Samples), "sample_rate", frame.SampleRate, "channels", frame.Channels)
		return
	}

	samples := DownmixToMono(frame.Samples, frame.Channels)
	samples = Resample(samples, frame.SampleRate, p.cfg.SampleRate)
	if len(samples) == 0 {
		return
	}

	p.mu.Lock()
	p.ring.Write(samples)
	p.vadAcc = append(p.vadAcc, samples...)
	p.transcriberAcc = append(p.transcriberAcc, samples...)
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Emit(bus.AudioChunkReceived, bus.AudioChunkReceivedPayload{SampleCount: len(samples)})
	}
}

// DrainVADChunks returns every whole [VADChunkSamples]-sized chunk currently
// accumulated, leaving any remainder for the next call. Never returns a
// partial chunk.
func (p *Pipeline) DrainVADChunks() [][]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var chunks [][]float32
	for len(p.vadAcc) >= VADChunkSamples {
		chunk := make([]float32, VADChunkSamples)
		copy(chunk, p.vadAcc[:VADChunkSamples])
		chunks = append(chunks, chunk)
		p.vadAcc = p.vadAcc[VADChunkSamples:]
	}
	return chunks
}

// DrainTranscriberChunks returns every whole overlapping transcriber window
// currently accumulated. Each returned chunk is transcriberWin samples long;
// consecutive chunks advance by transcriberStep samples, so they overlap by
// (transcriberWin - transcriberStep) samples.
func (p *Pipeline) DrainTranscriberChunks() [][]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var chunks [][]float32
	for len(p.transcriberAcc) >= p.transcriberWin {
		chunk := make([]float32, p.transcriberWin)
		copy(chunk, p.transcriberAcc[:p.transcriberWin])
		chunks = append(chunks, chunk)
		p.transcriberAcc = p.transcriberAcc[p.transcriberStep:]
	}
	return chunks
}

// IngressSnapshot returns a copy of the last IngressBufferSeconds of audio.
func (p *Pipeline) IngressSnapshot() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.Snapshot()
}

// Reset clears all three buffers, discarding any partially accumulated
// chunks. Called on peer disconnect.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring = NewRing(p.ring.cap)
	p.vadAcc = nil
	p.transcriberAcc = nil
}
