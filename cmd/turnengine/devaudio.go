//go:build portaudio

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/observe"
	"github.com/MrWong99/turnengine/internal/session"
	"github.com/MrWong99/turnengine/pkg/types"
)

// runDevAudio drives a single Session directly off the local microphone and
// speakers, for manual testing without a websocket client. Build with
// `-tags portaudio`.
func runDevAudio(cfg *config.Config) int {
	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: portaudio init:", err)
		return 1
	}
	defer portaudio.Terminate()

	out := make(chan []float32, 32)
	providers := newProviderSet(cfg, observe.DefaultMetrics())
	sess, err := session.New(cfg, providers.sessionProviders(), func(samples []float32) {
		select {
		case out <- samples:
		default:
			slog.Warn("turnengine devaudio: output buffer full, dropping chunk")
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: session setup:", err)
		return 1
	}
	defer sess.Close()

	const framesPerBuffer = 480 // 30ms at 16kHz, matches the VAD chunk size
	in := make([]float32, framesPerBuffer)
	inStream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.Audio.SampleRate), framesPerBuffer, in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: open input stream:", err)
		return 1
	}
	defer inStream.Close()
	if err := inStream.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: start input stream:", err)
		return 1
	}
	defer inStream.Stop()

	outBuf := make([]float32, framesPerBuffer)
	outStream, err := portaudio.OpenDefaultStream(0, 1, float64(cfg.Audio.SampleRate), framesPerBuffer, outBuf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: open output stream:", err)
		return 1
	}
	defer outStream.Close()
	if err := outStream.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "turnengine devaudio: start output stream:", err)
		return 1
	}
	defer outStream.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go playbackLoop(ctx, outStream, outBuf, out)

	slog.Info("turnengine devaudio: capturing, press ctrl-c to stop")
	for ctx.Err() == nil {
		if err := inStream.Read(); err != nil {
			slog.Error("turnengine devaudio: read failed", "error", err)
			return 1
		}
		frame := types.AudioFrame{Samples: append([]float32(nil), in...), SampleRate: cfg.Audio.SampleRate, Channels: 1}
		sess.ReceiveAudio(frame)
	}
	return 0
}

func playbackLoop(ctx context.Context, stream *portaudio.Stream, buf []float32, in <-chan []float32) {
	pending := make([]float32, 0, len(buf)*2)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-in:
			pending = append(pending, chunk...)
			for len(pending) >= len(buf) {
				copy(buf, pending[:len(buf)])
				pending = pending[len(buf):]
				if err := stream.Write(); err != nil {
					slog.Warn("turnengine devaudio: write failed", "error", err)
				}
			}
		}
	}
}
