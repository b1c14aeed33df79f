package backchannel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrWong99/turnengine/pkg/types"
)

// clipFilenames maps each backchannel kind to its asset filename within the
// library directory.
var clipFilenames = map[types.BackchannelKind]string{
	types.BackchannelMmhmm: "mmhmm.wav",
	types.BackchannelOkay:  "okay.wav",
	types.BackchannelYeah:  "yeah.wav",
	types.BackchannelISee:  "i_see.wav",
	types.BackchannelRight: "right.wav",
}

// Library holds every backchannel clip decoded into memory at startup, so
// playback never touches disk on the hot path.
type Library struct {
	clips map[types.BackchannelKind][]float32
}

// LoadLibrary decodes every clip named in clipFilenames from dir.
func LoadLibrary(dir string) (*Library, error) {
	lib := &Library{clips: make(map[types.BackchannelKind][]float32, len(clipFilenames))}
	for kind, name := range clipFilenames {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("backchannel: read %s: %w", name, err)
		}
		samples, err := decodeWAV(raw)
		if err != nil {
			return nil, fmt.Errorf("backchannel: decode %s: %w", name, err)
		}
		lib.clips[kind] = samples
	}
	return lib, nil
}

// Get returns the pre-decoded clip for kind, and false if none was loaded.
func (l *Library) Get(kind types.BackchannelKind) ([]float32, bool) {
	clip, ok := l.clips[kind]
	return clip, ok
}
