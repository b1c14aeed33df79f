package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/turnengine/internal/config"
	llmmock "github.com/MrWong99/turnengine/pkg/provider/llm/mock"
	"github.com/MrWong99/turnengine/pkg/provider/stt"
	sttmock "github.com/MrWong99/turnengine/pkg/provider/stt/mock"
	ttsmock "github.com/MrWong99/turnengine/pkg/provider/tts/mock"
	vadprovider "github.com/MrWong99/turnengine/pkg/provider/vad"
	vadmock "github.com/MrWong99/turnengine/pkg/provider/vad/mock"
	"github.com/MrWong99/turnengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempLibrary writes a minimal silent WAV clip under every filename the
// Backchannel Library requires so LoadLibrary succeeds.
func writeTempLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"mmhmm.wav", "okay.wav", "yeah.wav", "i_see.wav", "right.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), minimalWAV(), 0o644))
	}
	return dir
}

// minimalWAV builds a mono 16-bit PCM WAV container holding two silent
// samples.
func minimalWAV() []byte {
	pcm := []byte{0x00, 0x00, 0x00, 0x00}
	buf := []byte("RIFF")
	size := uint32(36 + len(pcm))
	buf = append(buf, byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, 16, 0, 0, 0)
	buf = append(buf, 1, 0)
	buf = append(buf, 1, 0)
	sr := uint32(16000)
	buf = append(buf, byte(sr), byte(sr>>8), byte(sr>>16), byte(sr>>24))
	byteRate := sr * 2
	buf = append(buf, byte(byteRate), byte(byteRate>>8), byte(byteRate>>16), byte(byteRate>>24))
	buf = append(buf, 2, 0)
	buf = append(buf, 16, 0)
	buf = append(buf, []byte("data")...)
	dataSize := uint32(len(pcm))
	buf = append(buf, byte(dataSize), byte(dataSize>>8), byte(dataSize>>16), byte(dataSize>>24))
	return append(buf, pcm...)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Backchannel.LibraryDir = writeTempLibrary(t)
	return cfg
}

func testProviders() Providers {
	return Providers{
		STT: &sttmock.Provider{},
		TTS: &ttsmock.Provider{},
		LLM: &llmmock.Provider{},
		VAD: &vadmock.Engine{},
	}
}

func TestNew_WiresEveryComponentSuccessfully(t *testing.T) {
	cfg := testConfig(t)

	sess, err := New(cfg, testProviders(), func([]float32) {})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, types.StateIdle, sess.State())
	assert.NoError(t, sess.Close())
}

func TestNew_PropagatesVADSessionCreationError(t *testing.T) {
	cfg := testConfig(t)
	providers := testProviders()
	providers.VAD = &vadmock.Engine{NewSessionErr: assert.AnError}

	_, err := New(cfg, providers, func([]float32) {})
	assert.Error(t, err)
}

func TestNew_PropagatesMissingLibraryError(t *testing.T) {
	cfg := config.Default()
	cfg.Backchannel.LibraryDir = t.TempDir() // empty, no clips

	_, err := New(cfg, testProviders(), func([]float32) {})
	assert.Error(t, err)
}

func TestReceiveAudio_DrivesVADProcessingOnFullChunks(t *testing.T) {
	cfg := testConfig(t)
	vadSession := &vadmock.Session{EventResult: vadprovider.Event{Probability: 0.9}}
	providers := testProviders()
	providers.VAD = &vadmock.Engine{Session: vadSession}

	sess, err := New(cfg, providers, func([]float32) {})
	require.NoError(t, err)
	defer sess.Close()

	frame := types.AudioFrame{
		Samples:    make([]float32, cfg.Audio.SampleRate), // 1 second
		SampleRate: cfg.Audio.SampleRate,
		Channels:   1,
	}
	sess.ReceiveAudio(frame)

	assert.NotEmpty(t, vadSession.ProcessFrameCalls)
}

func TestReceiveAudio_DispatchesTranscriberChunksToSTT(t *testing.T) {
	cfg := testConfig(t)
	sttProv := &sttmock.Provider{Result: stt.Result{Text: "", Ok: false}}
	providers := testProviders()
	providers.STT = sttProv

	sess, err := New(cfg, providers, func([]float32) {})
	require.NoError(t, err)
	defer sess.Close()

	winSamples := int(cfg.Audio.TranscriberChunkDurationS * float64(cfg.Audio.SampleRate))
	frame := types.AudioFrame{
		Samples:    make([]float32, winSamples),
		SampleRate: cfg.Audio.SampleRate,
		Channels:   1,
	}
	sess.ReceiveAudio(frame)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sttProv.Calls) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.NotEmpty(t, sttProv.Calls)
}

func TestClose_IsSafeAfterFreshConstruction(t *testing.T) {
	cfg := testConfig(t)
	sess, err := New(cfg, testProviders(), func([]float32) {})
	require.NoError(t, err)
	assert.NoError(t, sess.Close())
}
