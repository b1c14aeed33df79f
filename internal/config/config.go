// Package config provides the configuration schema, loader, and validation
// for the turn-taking engine.
package config

// Config is the root configuration structure for the turn-taking engine. It
// is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Audio       AudioConfig       `yaml:"audio" validate:"required"`
	VAD         VADConfig         `yaml:"vad" validate:"required"`
	TurnDetect  TurnDetectConfig  `yaml:"turn_detect" validate:"required"`
	Backchannel BackchannelConfig `yaml:"backchannel" validate:"required"`
	Response    ResponseConfig    `yaml:"response" validate:"required"`
	Lexicon     LexiconConfig     `yaml:"lexicon"`
}

// LogLevel controls slog verbosity. Valid values: "debug", "info", "warn",
// "error".
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is one of the recognized levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	default:
		return false
	}
}

// ServerConfig holds network and logging settings for the engine's
// websocket ingress.
type ServerConfig struct {
	// ListenAddr is the TCP address the websocket ingress listens on.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls slog verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the audio pipeline's fixed format and chunking
// geometry.
type AudioConfig struct {
	// SampleRate is the canonical internal sample rate in Hz.
	SampleRate int `yaml:"sample_rate" validate:"required,eq=16000"`

	// Channels is the canonical internal channel count.
	Channels int `yaml:"channels" validate:"required,eq=1"`

	// ChunkDurationMs is the VAD chunk duration in milliseconds.
	ChunkDurationMs int `yaml:"chunk_duration_ms" validate:"required,gt=0"`

	// TranscriberChunkDurationS is the transcriber accumulator's chunk
	// duration in seconds.
	TranscriberChunkDurationS float64 `yaml:"whisper_chunk_duration_s" validate:"required,gt=0"`

	// TranscriberOverlapS is how much consecutive transcriber chunks
	// overlap, in seconds.
	TranscriberOverlapS float64 `yaml:"whisper_overlap_s" validate:"required,gt=0,ltfield=TranscriberChunkDurationS"`

	// IngressBufferSeconds is the capacity of the circular ingress buffer.
	IngressBufferSeconds float64 `yaml:"ingress_buffer_seconds" validate:"required,gt=0"`
}

// VADConfig tunes the hysteresis state machine in internal/vad.
type VADConfig struct {
	// SpeechThreshold is the probability above which a chunk is classified
	// as speech.
	SpeechThreshold float64 `yaml:"vad_threshold" validate:"required,gt=0,lt=1"`

	// MinSpeechDurationMs is advisory metadata carried alongside the
	// consecutive-chunk counters; the hysteresis thresholds themselves are
	// fixed chunk counts, not durations.
	MinSpeechDurationMs int `yaml:"vad_min_speech_duration_ms" validate:"gte=0"`

	// MinSilenceDurationMs is the minimum cumulative silence before the
	// per-chunk SILENCE_DETECTED heartbeat begins.
	MinSilenceDurationMs int `yaml:"vad_min_silence_duration_ms" validate:"required,gt=0"`

	// SpeechStartChunks is the number of consecutive above-threshold chunks
	// required to declare speech started.
	SpeechStartChunks int `yaml:"speech_start_chunks" validate:"required,gt=0"`

	// SpeechEndChunks is the number of consecutive at-or-below-threshold
	// chunks required to declare speech ended.
	SpeechEndChunks int `yaml:"speech_end_chunks" validate:"required,gt=0"`
}

// TurnDetectConfig tunes the weighted score fusion in internal/turndetect.
type TurnDetectConfig struct {
	ShortPauseMs  int `yaml:"short_pause_ms" validate:"required,gt=0"`
	MediumPauseMs int `yaml:"medium_pause_ms" validate:"required,gtfield=ShortPauseMs"`
	LongPauseMs   int `yaml:"long_pause_ms" validate:"required,gtfield=MediumPauseMs"`

	// TurnEndScoreThreshold is the final-score cutoff above which the turn
	// is declared ended.
	TurnEndScoreThreshold float64 `yaml:"turn_end_score_threshold" validate:"required,gt=0,lte=100"`

	// EvaluatingPauseThreshold is the lower bound of the ambiguous band;
	// scores in (EvaluatingPauseThreshold, TurnEndScoreThreshold] move the
	// conversation to EVALUATING_PAUSE.
	EvaluatingPauseThreshold float64 `yaml:"evaluating_pause_threshold" validate:"required,gt=0,ltfield=TurnEndScoreThreshold"`

	SilenceWeight    float64 `yaml:"silence_weight" validate:"required,gt=0,lt=1"`
	LinguisticWeight float64 `yaml:"linguistic_weight" validate:"required,gt=0,lt=1"`
	ContextWeight    float64 `yaml:"context_weight" validate:"required,gt=0,lt=1"`
}

// BackchannelConfig tunes the trigger/selector/timing/player subsystem.
type BackchannelConfig struct {
	BaseProbability   float64 `yaml:"backchannel_base_probability" validate:"required,gt=0,lt=1"`
	MinIntervalS      float64 `yaml:"backchannel_min_interval_s" validate:"required,gt=0"`
	RecentPenaltyS    float64 `yaml:"backchannel_recent_penalty_s" validate:"required,gt=0"`
	SafeZoneMs        int     `yaml:"backchannel_safe_zone_ms" validate:"required,gt=0"`
	Volume            float64 `yaml:"backchannel_volume" validate:"required,gt=0,lte=1"`
	MinSilenceMs      int     `yaml:"backchannel_min_silence_ms" validate:"required,gt=0"`
	MaxSilenceMs      int     `yaml:"backchannel_max_silence_ms" validate:"required,gtfield=MinSilenceMs"`
	MinSentenceCount  int     `yaml:"backchannel_min_sentence_count" validate:"required,gt=0"`
	MinWordCount      int     `yaml:"backchannel_min_word_count" validate:"required,gt=0"`
	LibraryDir        string  `yaml:"library_dir" validate:"required"`
}

// ResponseConfig tunes the LLM/TTS sequencing in internal/response.
type ResponseConfig struct {
	// SystemPrompt is prepended to every LLM request as the system message.
	SystemPrompt string `yaml:"system_prompt" validate:"required"`

	// Temperature is passed through to the LLM collaborator.
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens bounds the LLM collaborator's generation length.
	MaxTokens int `yaml:"max_tokens" validate:"required,gt=0"`

	// PlaybackSampleRate is the sample rate, in Hz, assumed when converting a
	// synthesized clip's length into a playback-duration wait. TTS
	// collaborators in this deployment always return 16-bit mono PCM at this
	// rate.
	PlaybackSampleRate int `yaml:"playback_sample_rate" validate:"required,gt=0"`
}

// LexiconConfig holds the word lists the Linguistic Analyzer and Backchannel
// Trigger Detector consult. Empty lists fall back to [DefaultLexicon].
type LexiconConfig struct {
	ContinuationWords []string `yaml:"continuation_words"`
	EmotionKeywords   []string `yaml:"emotion_keywords"`
	ExplicitPrompts   []string `yaml:"explicit_prompts"`
	QuestionWords     []string `yaml:"question_words"`
	CommonVerbs       []string `yaml:"common_verbs"`
}
