// Package transcribe dispatches overlapping audio chunks to the STT
// collaborator concurrently, reorders results back into dispatch order, and
// deduplicates the overlap introduced by the audio pipeline's sliding window
// before appending new text to the conversation log.
package transcribe

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/pkg/provider/stt"
	"github.com/MrWong99/turnengine/pkg/types"
)

// maxConcurrentDispatches bounds how many STT calls a single Coordinator
// keeps in flight at once. The audio pipeline can hand off chunks faster
// than a remote STT backend can drain them; without a bound, a slow
// backend lets goroutines (and pending-map entries) pile up without limit.
const maxConcurrentDispatches = 4

// TranscriptSink receives deduplicated, finalized transcript text. It is
// satisfied by the conversation manager's add_transcript mutator.
type TranscriptSink interface {
	AddTranscript(text string)
}

type pendingResult struct {
	seq  uint64
	text string
	ok   bool
}

// Coordinator owns dispatch-order bookkeeping for one connection's STT
// traffic. Not safe for concurrent calls to Dispatch from multiple
// goroutines without external serialization of the sequence assignment;
// Dispatch itself may run its STT call concurrently with other in-flight
// dispatches.
type Coordinator struct {
	provider   stt.Provider
	sink       TranscriptSink
	bus        *bus.Bus
	sampleRate int
	inflight   *semaphore.Weighted

	mu          sync.Mutex
	nextSeq     uint64
	nextApply   uint64
	pending     map[uint64]pendingResult
	recentWords [][]string
}

// New constructs a Coordinator. sampleRate is the rate of samples passed to
// Dispatch, used to encode the WAV clip sent to the provider.
func New(provider stt.Provider, sink TranscriptSink, b *bus.Bus, sampleRate int) *Coordinator {
	return &Coordinator{
		provider:   provider,
		sink:       sink,
		bus:        b,
		sampleRate: sampleRate,
		inflight:   semaphore.NewWeighted(maxConcurrentDispatches),
		pending:    make(map[uint64]pendingResult),
	}
}

// Dispatch assigns the next sequence number to samples and transcribes it.
// The caller should invoke Dispatch once per chunk yielded by the audio
// pipeline's transcriber accumulator, in the order the chunks were drained.
// Sequence numbers are taken in the order calls enter Dispatch, so results
// apply in chunk order only if calls enter in chunk order. At most maxConcurrentDispatches
// calls to the STT provider run at once; Dispatch blocks until a slot frees
// up or ctx is cancelled.
func (c *Coordinator) Dispatch(ctx context.Context, samples []float32) {
	c.mu.Lock()
	seq := c.nextSeq
	c.nextSeq++
	c.mu.Unlock()

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		slog.Warn("transcribe: dispatch cancelled waiting for a slot", "seq", seq, "error", err)
		c.complete(pendingResult{seq: seq, ok: false})
		return
	}
	defer c.inflight.Release(1)

	wav := encodeWAV(samples, c.sampleRate)
	result, err := c.provider.Transcribe(ctx, wav)
	if err != nil {
		slog.Error("transcribe: provider call failed", "seq", seq, "error", err)
		c.complete(pendingResult{seq: seq, ok: false})
		return
	}
	c.complete(pendingResult{seq: seq, text: result.Text, ok: result.Ok})
}

// complete records a finished dispatch and applies every contiguous,
// already-finished result starting from the next expected sequence number.
// Results that finish out of order wait in pending until their turn.
func (c *Coordinator) complete(res pendingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[res.seq] = res
	for {
		next, ok := c.pending[c.nextApply]
		if !ok {
			return
		}
		delete(c.pending, c.nextApply)
		c.nextApply++
		if next.ok && next.text != "" {
			c.applyLocked(next.text)
		}
	}
}

func (c *Coordinator) applyLocked(text string) {
	suffix, _ := dedup(c.recentWords, text)

	c.recentWords = append(c.recentWords, wordsOf(text))
	if len(c.recentWords) > 2 {
		c.recentWords = c.recentWords[len(c.recentWords)-2:]
	}

	if suffix == "" {
		return
	}

	c.sink.AddTranscript(suffix)
	if c.bus != nil {
		c.bus.Emit(bus.FinalTranscript, bus.TranscriptPayload{
			Segment: newFinalSegment(suffix),
		})
	}
}

func wordsOf(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func newFinalSegment(text string) types.TranscriptSegment {
	return types.TranscriptSegment{
		Text:      text,
		Timestamp: time.Now(),
		IsFinal:   true,
		Speaker:   types.SpeakerUser,
	}
}
