// Package session wires every turn-taking subsystem into a single
// per-connection aggregate, mirroring the way a platform-facing session
// manager owns one instance of each subsystem per active voice connection.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/turnengine/internal/audiopipe"
	"github.com/MrWong99/turnengine/internal/backchannel"
	"github.com/MrWong99/turnengine/internal/bus"
	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/conversation"
	"github.com/MrWong99/turnengine/internal/linguistic"
	"github.com/MrWong99/turnengine/internal/mixer"
	"github.com/MrWong99/turnengine/internal/observe"
	"github.com/MrWong99/turnengine/internal/response"
	"github.com/MrWong99/turnengine/internal/transcribe"
	"github.com/MrWong99/turnengine/internal/turndetect"
	"github.com/MrWong99/turnengine/internal/vad"
	"github.com/MrWong99/turnengine/pkg/provider/llm"
	"github.com/MrWong99/turnengine/pkg/provider/stt"
	"github.com/MrWong99/turnengine/pkg/provider/tts"
	vadprovider "github.com/MrWong99/turnengine/pkg/provider/vad"
	"github.com/MrWong99/turnengine/pkg/types"

	"go.opentelemetry.io/otel/trace"
)

// Providers holds the external collaborators a Session needs, one per
// provider slot. All fields are required.
type Providers struct {
	STT stt.Provider
	TTS tts.Provider
	LLM llm.Provider
	VAD vadprovider.Engine
}

// historyCapacity is the event bus's diagnostic history ring size for a
// session. Sized generously for post-mortem inspection without unbounded
// growth.
const historyCapacity = 500

// Session owns one instance of every core turn-taking component for a
// single voice connection: the event bus, audio pipeline, VAD processor,
// transcription coordinator, turn detector, the backchannel chain, the
// conversation manager, the response coordinator, and the audio mixer.
// Every component wires itself to the bus at construction time; Session's
// own surface is limited to feeding audio in and tearing everything down.
type Session struct {
	cfg *config.Config
	bus *bus.Bus

	pipeline     *audiopipe.Pipeline
	vadSession   vadprovider.SessionHandle
	vadProcessor *vad.Processor
	analyzer     *linguistic.Analyzer
	manager      *conversation.Manager
	transcriber  *transcribe.Coordinator
	turnDetector *turndetect.Detector

	trigger  *backchannel.TriggerDetector
	selector *backchannel.Selector
	timing   *backchannel.TimingController
	player   *backchannel.Player

	responder *response.Coordinator
	mixer     *mixer.Mixer

	span trace.Span
}

// New wires a complete Session from cfg and providers. output receives
// every mixed sample chunk the Audio Mixer produces, destined for the
// transport layer.
func New(cfg *config.Config, providers Providers, output func([]float32)) (*Session, error) {
	b := bus.New(historyCapacity)
	manager := conversation.New(b)
	pipeline := audiopipe.New(cfg.Audio, b)
	analyzer := linguistic.New(cfg.Lexicon)
	mx := mixer.New(output)

	vadSession, err := providers.VAD.NewSession(vadprovider.Config{
		SampleRate: cfg.Audio.SampleRate,
		FrameSize:  audiopipe.VADChunkSamples,
	})
	if err != nil {
		_ = mx.Close()
		return nil, fmt.Errorf("session: create vad session: %w", err)
	}
	vadProcessor := vad.New(vadSession, b, cfg.VAD, cfg.Audio.ChunkDurationMs)

	transcriber := transcribe.New(providers.STT, manager, b, cfg.Audio.SampleRate)

	turnDetector := turndetect.New(cfg.TurnDetect, analyzer, manager, b)

	trigger := backchannel.NewTriggerDetector(cfg.Backchannel, cfg.Lexicon, analyzer, manager, b)
	selector := backchannel.NewSelector(cfg.Lexicon, analyzer, manager, b)
	timing := backchannel.NewTimingController(cfg.Backchannel, b)

	library, err := backchannel.LoadLibrary(cfg.Backchannel.LibraryDir)
	if err != nil {
		_ = vadSession.Close()
		_ = mx.Close()
		return nil, fmt.Errorf("session: load backchannel library: %w", err)
	}
	player := backchannel.NewPlayer(library, mx, manager, b)

	responder := response.New(cfg.Response, providers.LLM, providers.TTS, mx, manager, b)

	_, span := observe.StartSpan(context.Background(), "session.lifecycle",
		trace.WithSpanKind(trace.SpanKindInternal),
		observe.WithSessionID(manager.SessionID()),
	)

	slog.Info("session: created", "session_id", manager.SessionID())

	return &Session{
		cfg:          cfg,
		bus:          b,
		pipeline:     pipeline,
		vadSession:   vadSession,
		vadProcessor: vadProcessor,
		analyzer:     analyzer,
		manager:      manager,
		transcriber:  transcriber,
		turnDetector: turnDetector,
		trigger:      trigger,
		selector:     selector,
		timing:       timing,
		player:       player,
		responder:    responder,
		mixer:        mx,
		span:         span,
	}, nil
}

// ReceiveAudio feeds one inbound audio frame through the pipeline, then
// drains and processes every whole chunk it yields: VAD chunks synchronously
// through the hysteresis state machine, and transcriber chunks dispatched
// concurrently to the STT collaborator (dispatch order is recovered
// internally by the Transcription Coordinator via sequence numbers).
func (s *Session) ReceiveAudio(frame types.AudioFrame) {
	s.pipeline.ReceiveAudio(frame)

	for _, chunk := range s.pipeline.DrainVADChunks() {
		if _, err := s.vadProcessor.ProcessChunk(chunk); err != nil {
			slog.Error("session: vad chunk processing failed", "session_id", s.SessionID(), "error", err)
		}
	}

	for _, chunk := range s.pipeline.DrainTranscriberChunks() {
		go s.transcriber.Dispatch(context.Background(), chunk)
	}
}

// State returns the Conversation Manager's current state, the single
// source of truth for the connection.
func (s *Session) State() types.ConversationState {
	return s.manager.State()
}

// SessionID returns the unique identifier assigned to this connection at
// construction time, for correlating logs and metrics across its lifetime.
func (s *Session) SessionID() string {
	return s.manager.SessionID()
}

// Bus exposes the session's event bus for diagnostics or external
// subscribers (e.g. a transport-layer logger).
func (s *Session) Bus() *bus.Bus {
	return s.bus
}

// Close tears down the session: clears every component's buffers and state
// per the peer-disconnect cancellation model, then releases the VAD session
// and stops the mixer's worker. Outstanding STT/TTS/LLM calls are not
// cancelled — their results are simply discarded by the stopped pipeline.
func (s *Session) Close() error {
	s.pipeline.Reset()
	s.vadProcessor.Reset()
	s.manager.ResetTurn()
	s.mixer.Reset()

	s.span.End()

	if err := s.vadSession.Close(); err != nil {
		return fmt.Errorf("session: close vad session %s: %w", s.SessionID(), err)
	}
	return s.mixer.Close()
}
