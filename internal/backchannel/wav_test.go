package backchannel

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV encodes pcm int16 samples as a minimal mono 16-bit PCM WAV
// container, mirroring the layout the transcription coordinator's encoder
// produces.
func buildWAV(samples []int16, sampleRate int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func TestDecodeWAV_RoundTripsKnownSamples(t *testing.T) {
	samples, err := decodeWAV(buildWAV([]int16{0, 16384, -16384, 32767, -32768}, 16000))
	require.NoError(t, err)
	require.Len(t, samples, 5)

	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-6)
	assert.InDelta(t, -0.5, samples[2], 1e-6)
	assert.InDelta(t, 1.0, samples[3], 1e-4)
	assert.InDelta(t, -1.0, samples[4], 1e-6)
}

func TestDecodeWAV_SkipsExtraChunksBeforeData(t *testing.T) {
	wav := buildWAV([]int16{100, 200}, 16000)
	// Splice a LIST chunk between "fmt " and "data".
	dataIdx := bytes.Index(wav, []byte("data"))
	listChunk := []byte("LIST")
	listChunk = append(listChunk, 4, 0, 0, 0) // size 4
	listChunk = append(listChunk, []byte("INFO")...)
	spliced := append(append(append([]byte{}, wav[:dataIdx]...), listChunk...), wav[dataIdx:]...)

	samples, err := decodeWAV(spliced)
	require.NoError(t, err)
	require.Len(t, samples, 2)
}

func TestDecodeWAV_RejectsNonRIFFInput(t *testing.T) {
	_, err := decodeWAV([]byte("not a wav file at all"))
	assert.Error(t, err)
}

func TestDecodeWAV_RejectsMissingDataChunk(t *testing.T) {
	wav := buildWAV([]int16{1}, 16000)
	dataIdx := bytes.Index(wav, []byte("data"))
	assert.Error(t, func() error { _, err := decodeWAV(wav[:dataIdx]); return err }())
}
