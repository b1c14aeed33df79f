package audiopipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResample_SameRateReturnsInputUnchanged(t *testing.T) {
	in := []float32{1, 2, 3}
	assert.Equal(t, in, Resample(in, 16000, 16000))
}

func TestResample_UpsamplesToExpectedLength(t *testing.T) {
	in := make([]float32, 100)
	out := Resample(in, 8000, 16000)
	assert.Equal(t, 200, len(out))
}

func TestResample_DownsamplesToExpectedLength(t *testing.T) {
	in := make([]float32, 200)
	out := Resample(in, 16000, 8000)
	assert.Equal(t, 100, len(out))
}

func TestDownmixToMono_AveragesChannels(t *testing.T) {
	stereo := []float32{1, 3, 1, 3}
	mono := DownmixToMono(stereo, 2)
	assert.Equal(t, []float32{2, 2}, mono)
}

func TestDownmixToMono_PassthroughForMono(t *testing.T) {
	mono := []float32{1, 2, 3}
	assert.Equal(t, mono, DownmixToMono(mono, 1))
}
