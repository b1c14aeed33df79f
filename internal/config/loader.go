package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// weightSumTolerance bounds how far SilenceWeight+LinguisticWeight+ContextWeight
// may drift from 1.0 before [Validate] rejects the config.
const weightSumTolerance = 0.01

// Default returns a [Config] populated with the engine's built-in tunables.
// Callers typically start from Default and override individual fields, or
// load a complete file with [Load].
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			SampleRate:                16000,
			Channels:                  1,
			ChunkDurationMs:           30,
			TranscriberChunkDurationS: 1.5,
			TranscriberOverlapS:       0.5,
			IngressBufferSeconds:      30,
		},
		VAD: VADConfig{
			SpeechThreshold:      0.5,
			MinSpeechDurationMs:  250,
			MinSilenceDurationMs: 300,
			SpeechStartChunks:    3,
			SpeechEndChunks:      5,
		},
		TurnDetect: TurnDetectConfig{
			ShortPauseMs:             400,
			MediumPauseMs:            1000,
			LongPauseMs:              1500,
			TurnEndScoreThreshold:    65,
			EvaluatingPauseThreshold: 40,
			SilenceWeight:            0.40,
			LinguisticWeight:         0.35,
			ContextWeight:            0.25,
		},
		Backchannel: BackchannelConfig{
			BaseProbability:  0.4,
			MinIntervalS:     5.0,
			RecentPenaltyS:   8.0,
			SafeZoneMs:       300,
			Volume:           0.5,
			MinSilenceMs:     300,
			MaxSilenceMs:     700,
			MinSentenceCount: 2,
			MinWordCount:     5,
			LibraryDir:       "assets/backchannel",
		},
		Response: ResponseConfig{
			SystemPrompt:       "You are a helpful, concise voice assistant. Keep replies to two or three short, conversational sentences.",
			Temperature:        0.7,
			MaxTokens:          512,
			PlaybackSampleRate: 16000,
		},
		Lexicon: DefaultLexicon(),
	}
}

// DefaultLexicon returns the built-in word lists used when a [Config] does
// not supply its own.
func DefaultLexicon() LexiconConfig {
	return LexiconConfig{
		ContinuationWords: []string{
			"and", "so", "but", "um", "uh", "like", "or", "because", "then",
			"well", "actually", "basically", "you know",
		},
		EmotionKeywords: []string{
			"amazing", "terrible", "wonderful", "awful", "excited", "love", "hate",
			"frustrated", "angry", "upset", "annoyed", "worried", "anxious", "confused",
		},
		ExplicitPrompts: []string{
			"you know?", "right?", "go ahead", "your turn", "what do you think", "any thoughts",
		},
		QuestionWords: []string{
			"what", "when", "where", "who", "whom", "whose", "why", "which", "how",
			"is", "are", "was", "were", "do", "does", "did",
			"can", "could", "will", "would", "should", "shall", "may", "might", "must",
		},
		CommonVerbs: []string{
			"is", "are", "was", "were", "have", "has", "had", "do", "does", "did", "will", "can", "think", "want", "need", "know",
		},
	}
}

// Load reads the YAML configuration file at path, fills any zero-valued
// sections from [Default], and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays it onto [Default],
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if len(cfg.Lexicon.ContinuationWords) == 0 && len(cfg.Lexicon.EmotionKeywords) == 0 &&
		len(cfg.Lexicon.ExplicitPrompts) == 0 && len(cfg.Lexicon.QuestionWords) == 0 &&
		len(cfg.Lexicon.CommonVerbs) == 0 {
		cfg.Lexicon = DefaultLexicon()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, running
// struct-tag validation followed by cross-field invariants that cannot be
// expressed as tags. It returns a joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("config: server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("config: %s failed %q validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, fmt.Errorf("config: %w", err))
		}
	}

	sum := cfg.TurnDetect.SilenceWeight + cfg.TurnDetect.LinguisticWeight + cfg.TurnDetect.ContextWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		errs = append(errs, fmt.Errorf("config: turn_detect weights must sum to 1.0 (±%.2f), got %.4f", weightSumTolerance, sum))
	}

	return errors.Join(errs...)
}
