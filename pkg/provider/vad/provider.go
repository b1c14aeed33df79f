// Package vad defines the Engine interface for the voice-activity-detection
// oracle.
//
// A VAD engine wraps a frame-level speech-probability model (e.g. Silero
// VAD via ONNX) and surfaces it as a stateful, per-stream session. Each
// session maintains its own hidden state so that multiple concurrent audio
// streams can be processed independently. The oracle itself is treated as
// opaque: callers never inspect its hidden state, only reset it.
//
// VAD is synchronous by design: ProcessFrame returns immediately with a
// probability, making it suitable for a low-latency pipeline stage that
// gates the hysteresis state machine in internal/vad.
//
// Implementations must be safe for concurrent use across different sessions.
// A single SessionHandle should not be shared across goroutines unless the
// implementation explicitly documents thread safety for that type.
package vad

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz of the frames passed to
	// ProcessFrame. The turn-taking engine always operates at 16000.
	SampleRate int

	// FrameSize is the number of samples per frame the oracle expects.
	// ProcessFrame returns an error if the supplied frame does not match
	// this length.
	FrameSize int
}

// SessionHandle represents an active VAD session for a single audio stream.
// It is an interface so that test code can supply in-memory fakes without a
// live model. Each session maintains its own hidden state; Reset clears it
// without closing the session.
//
// A SessionHandle should not be shared between goroutines unless the
// implementation explicitly guarantees concurrent safety.
type SessionHandle interface {
	// ProcessFrame analyses a single chunk of mono float32 PCM samples in
	// [-1, 1] and returns the speech probability for that chunk. The slice
	// must have exactly FrameSize samples.
	//
	// This method is designed to be called synchronously in the hysteresis
	// loop; it must not block.
	ProcessFrame(chunk []float32) (Event, error)

	// Reset clears all accumulated hidden state without closing the
	// session. Use this whenever the caller's own state machine resets
	// (peer disconnect, stream restart) to avoid stale state leaking into
	// the next speech segment.
	Reset()

	// Close releases all resources associated with the session. After
	// Close, ProcessFrame and Reset must return errors or be no-ops.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Engine is the factory for VAD sessions.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewSession simultaneously to create independent sessions.
type Engine interface {
	// NewSession creates a new VAD session with the given configuration.
	// The session is immediately ready to accept frames.
	//
	// Returns an error if the configuration is invalid (unsupported sample
	// rate or frame size) or if the engine cannot allocate resources for
	// the session.
	NewSession(cfg Config) (SessionHandle, error)
}
