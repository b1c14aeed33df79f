package vad

// Event represents a voice-activity probability result for a single audio
// chunk. The oracle is opaque: it maintains its own hidden state across
// calls and is told to forget it via [SessionHandle.Reset].
type Event struct {
	// Probability is the speech probability score (0.0-1.0) for the chunk
	// just processed.
	Probability float64
}
