package main

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/observe"
	"github.com/MrWong99/turnengine/internal/session"
	"github.com/MrWong99/turnengine/pkg/types"
)

// newWSHandler returns an HTTP handler that upgrades each connection to a
// websocket, wires a fresh Session behind it, and bridges binary frames in
// both directions: inbound messages are little-endian int16 mono PCM at
// cfg.Audio.SampleRate; outbound messages are the mixer's output in the
// same format.
func newWSHandler(cfg *config.Config, metrics *observe.Metrics, providers *providerSet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Error("turnengine: websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		metrics.ActiveSessions.Add(ctx, 1)
		defer metrics.ActiveSessions.Add(ctx, -1)

		sess, err := session.New(cfg, providers.sessionProviders(), outputFunc(ctx, conn))
		if err != nil {
			slog.Error("turnengine: session setup failed", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "session setup failed")
			return
		}
		defer func() {
			if err := sess.Close(); err != nil {
				slog.Error("turnengine: session close failed", "session_id", sess.SessionID(), "error", err)
			}
		}()

		slog.Info("turnengine: session started", "session_id", sess.SessionID(), "remote_addr", r.RemoteAddr)

		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				slog.Info("turnengine: connection closed", "session_id", sess.SessionID(), "error", err)
				return
			}
			if msgType != websocket.MessageBinary {
				continue
			}
			sess.ReceiveAudio(types.AudioFrame{
				Samples:    pcm16ToFloat32(data),
				SampleRate: cfg.Audio.SampleRate,
				Channels:   1,
			})
		}
	}
}

// outputFunc adapts the Session's mixer output callback to a websocket
// write. The mixer calls this synchronously from its own worker goroutine,
// so writes are serialized by construction.
func outputFunc(ctx context.Context, conn *websocket.Conn) func([]float32) {
	return func(samples []float32) {
		if err := conn.Write(ctx, websocket.MessageBinary, float32ToPCM16(samples)); err != nil {
			slog.Warn("turnengine: websocket write failed", "error", err)
		}
	}
}

func pcm16ToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(sample) / 32768.0
	}
	return out
}

func float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}
