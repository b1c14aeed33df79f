package transcribe

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encodeWAV packages mono float32 samples in [-1, 1] as a self-contained
// 16-bit PCM WAV clip at sampleRate, the format the STT collaborator expects.
func encodeWAV(samples []float32, sampleRate int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[2*i], pcm[2*i+1] = int16LE(floatToInt16(s))
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

func floatToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int16(math.Round(float64(s) * 32767))
}

func int16LE(v int16) (byte, byte) {
	return byte(v), byte(v >> 8)
}
