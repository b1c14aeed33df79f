//go:build !portaudio

package main

import (
	"fmt"
	"os"

	"github.com/MrWong99/turnengine/internal/config"
)

// runDevAudio is a stub for binaries built without the portaudio tag.
func runDevAudio(cfg *config.Config) int {
	fmt.Fprintln(os.Stderr, "turnengine: devaudio requires a build with -tags portaudio")
	return 1
}
