package mixer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	chunks [][]float32
}

func (c *collector) collect(chunk []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Copy: the mixer reuses no backing array today, but tests should not
	// rely on that.
	cp := make([]float32, len(chunk))
	copy(cp, chunk)
	c.chunks = append(c.chunks, cp)
}

func (c *collector) snapshot() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(c.chunks))
	copy(out, c.chunks)
	return out
}

func waitForChunks(t *testing.T, c *collector, min int) [][]float32 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if chunks := c.snapshot(); len(chunks) >= min {
			return chunks
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d chunks", min)
	return nil
}

func TestMixer_PrimaryOnlyPassesThroughUnattenuated(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.SubmitPrimary([]float32{0.2, 0.4, -0.3})

	chunks := waitForChunks(t, c, 1)
	require.NotEmpty(t, chunks[0])
	assert.InDelta(t, 0.2, chunks[0][0], 1e-6)
	assert.InDelta(t, 0.4, chunks[0][1], 1e-6)
	assert.InDelta(t, -0.3, chunks[0][2], 1e-6)
}

func TestMixer_SecondaryOnlyIsAttenuatedToHalf(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.SubmitSecondary([]float32{0.8, -0.8})

	chunks := waitForChunks(t, c, 1)
	assert.InDelta(t, 0.4, chunks[0][0], 1e-6)
	assert.InDelta(t, -0.4, chunks[0][1], 1e-6)
}

func TestMixer_PrimaryAndSecondaryAreSummed(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.SubmitPrimary([]float32{0.3, 0.3})
	m.SubmitSecondary([]float32{0.2, 0.2})

	chunks := waitForChunks(t, c, 1)
	// 0.3 + 0.2*0.5 = 0.4
	assert.InDelta(t, 0.4, chunks[0][0], 1e-6)
	assert.InDelta(t, 0.4, chunks[0][1], 1e-6)
}

func TestMixer_ShorterQueueIsZeroPadded(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.SubmitPrimary([]float32{0.1, 0.1, 0.1, 0.1})
	m.SubmitSecondary([]float32{0.2})

	chunks := waitForChunks(t, c, 1)
	require.Len(t, chunks[0], 4)
	assert.InDelta(t, 0.1+0.1, chunks[0][0], 1e-6)
	assert.InDelta(t, 0.1, chunks[0][1], 1e-6)
	assert.InDelta(t, 0.1, chunks[0][2], 1e-6)
	assert.InDelta(t, 0.1, chunks[0][3], 1e-6)
}

func TestMixer_ClipsOutOfRangeSums(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.SubmitPrimary([]float32{0.9, -0.9})
	m.SubmitSecondary([]float32{0.9, -0.9})

	chunks := waitForChunks(t, c, 1)
	assert.Equal(t, float32(1.0), chunks[0][0])
	assert.Equal(t, float32(-1.0), chunks[0][1])
}

func TestMixer_EmptyQueuesProduceNoOutput(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMixer_ResetDiscardsUnmixedAudio(t *testing.T) {
	c := &collector{}
	m := New(c.collect)
	defer m.Close()

	m.mu.Lock()
	m.primary = []float32{1, 1, 1}
	m.mu.Unlock()

	m.Reset()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMixer_CloseIsIdempotentAndStopsDelivery(t *testing.T) {
	c := &collector{}
	m := New(c.collect)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	m.SubmitPrimary([]float32{1})
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestClip_BoundsToUnitRange(t *testing.T) {
	assert.Equal(t, float32(1.0), clip(1.5))
	assert.Equal(t, float32(-1.0), clip(-1.5))
	assert.Equal(t, float32(0.3), clip(0.3))
}
