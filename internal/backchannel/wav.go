package backchannel

import (
	"encoding/binary"
	"fmt"
)

// decodeWAV parses a mono 16-bit PCM WAV container, the layout
// [transcribe.encodeWAV] produces for STT clips, into float32 samples in
// [-1, 1]. It walks chunks rather than assuming a fixed header length, since
// some encoders insert extra chunks (e.g. "LIST") before "data".
func decodeWAV(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("backchannel: not a RIFF/WAVE container")
	}

	offset := 12
	var dataChunk []byte
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8
		if body+int(size) > len(data) {
			return nil, fmt.Errorf("backchannel: truncated %q chunk", id)
		}
		if id == "data" {
			dataChunk = data[body : body+int(size)]
			break
		}
		offset = body + int(size)
		if size%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}
	if dataChunk == nil {
		return nil, fmt.Errorf("backchannel: no data chunk found")
	}

	samples := make([]float32, len(dataChunk)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(dataChunk[2*i : 2*i+2]))
		samples[i] = float32(v) / 32768
	}
	return samples, nil
}
