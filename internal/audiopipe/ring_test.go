package audiopipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_SnapshotBeforeFull(t *testing.T) {
	r := NewRing(5)
	r.Write([]float32{1, 2, 3})
	assert.Equal(t, []float32{1, 2, 3}, r.Snapshot())
}

func TestRing_OverwritesOldestOnceFull(t *testing.T) {
	r := NewRing(3)
	r.Write([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, []float32{3, 4, 5}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}

func TestRing_NeverExceedsCapacity(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 100; i++ {
		r.Write([]float32{float32(i)})
	}
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []float32{96, 97, 98, 99}, r.Snapshot())
}
