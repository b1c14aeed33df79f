// Command turnengine runs the real-time conversational turn-taking engine
// as a standalone websocket server: one Session per connection, each
// streaming inbound audio frames in and mixed audio frames back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/turnengine/internal/config"
	"github.com/MrWong99/turnengine/internal/health"
	"github.com/MrWong99/turnengine/internal/observe"
	"github.com/MrWong99/turnengine/internal/resilience"
	"github.com/MrWong99/turnengine/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (defaults built-in if empty)")
	listenAddr := flag.String("listen", "", "override server.listen_addr")
	devAudio := flag.Bool("devaudio", false, "run a single session against the local microphone and speakers instead of serving websockets")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "turnengine:", err)
		return 1
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if *devAudio {
		return runDevAudio(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "turnengine",
		ServiceVersion: "dev",
	})
	if err != nil {
		slog.Error("turnengine: init telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("turnengine: telemetry shutdown", "error", err)
		}
	}()

	metrics := observe.DefaultMetrics()
	providers := newProviderSet(cfg, metrics)

	printStartupSummary(cfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", newWSHandler(cfg, metrics, providers))
	health.New(providers.healthCheckers()...).Register(mux)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("turnengine: listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("turnengine: shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("turnengine: server failed", "error", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("turnengine: graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// providerSet holds the process-wide provider fallback groups shared by
// every websocket connection. Sharing them (rather than building a fresh
// set per connection) means a provider's circuit breaker reflects that
// backend's real health across the whole server's traffic, not just one
// caller's last few requests.
type providerSet struct {
	stt *resilience.STTFallback
	tts *resilience.TTSFallback
	llm *resilience.LLMFallback
	vad *energyVADEngine
}

// newProviderSet builds the demo provider set the server shares across
// connections, each wrapped in a [resilience.FallbackGroup] of one so a
// misbehaving backend trips its breaker instead of hanging every call. A
// production deployment would register real fallback backends with
// AddFallback. Breaker transitions to open are reported to metrics so a
// tripped provider shows up on the /metrics endpoint, not just /readyz.
func newProviderSet(cfg *config.Config, metrics *observe.Metrics) *providerSet {
	fallbackConfig := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  3,
			ResetTimeout: 10 * time.Second,
			OnStateChange: func(name string, _, to resilience.State) {
				if to == resilience.StateOpen {
					metrics.RecordProviderError(context.Background(), name, "circuit_open")
				}
			},
		},
	}

	return &providerSet{
		stt: resilience.NewSTTFallback(silentSTTProvider{}, "stt-demo", fallbackConfig),
		tts: resilience.NewTTSFallback(silentTTSProvider{sampleRate: cfg.Response.PlaybackSampleRate}, "tts-demo", fallbackConfig),
		llm: resilience.NewLLMFallback(echoLLMProvider{}, "llm-demo", fallbackConfig),
		vad: newEnergyVADEngine(),
	}
}

// sessionProviders adapts the shared set to the [session.Providers] a new
// connection's [session.Session] is constructed with.
func (p *providerSet) sessionProviders() session.Providers {
	return session.Providers{
		STT: p.stt,
		TTS: p.tts,
		LLM: p.llm,
		VAD: p.vad,
	}
}

// healthCheckers builds one readiness [health.Checker] per provider slot
// from its fallback group's circuit state.
func (p *providerSet) healthCheckers() []health.Checker {
	return []health.Checker{
		health.ProviderChecker("stt", p.stt),
		health.ProviderChecker("tts", p.tts),
		health.ProviderChecker("llm", p.llm),
	}
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("+---------------------------------------------+")
	fmt.Println("| turnengine                                   |")
	fmt.Printf("| listen:      %-32s|\n", cfg.Server.ListenAddr)
	fmt.Printf("| log level:   %-32s|\n", cfg.Server.LogLevel)
	fmt.Printf("| sample rate: %-32d|\n", cfg.Audio.SampleRate)
	fmt.Printf("| backchannel: %-32s|\n", cfg.Backchannel.LibraryDir)
	fmt.Println("+---------------------------------------------+")
}
