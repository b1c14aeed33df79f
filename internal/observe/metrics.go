// Package observe provides application-wide observability primitives for the
// turn-taking engine: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all turn-engine
// metrics.
const meterName = "github.com/MrWong99/turnengine"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnScoreHistogram tracks the final fused turn-end score emitted by the
	// Turn Detector on every silence evaluation.
	TurnScoreHistogram metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// TurnEndings counts TURN_ENDED events.
	TurnEndings metric.Int64Counter

	// BackchannelsTriggered counts successful backchannel trigger decisions.
	BackchannelsTriggered metric.Int64Counter

	// BackchannelsPlayed counts backchannels actually submitted to the mixer
	// (excludes those aborted by the safe-zone timing guard).
	BackchannelsPlayed metric.Int64Counter

	// MixerClips counts audio samples clipped to [-1, 1] by the mixer.
	MixerClips metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live conversation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// scoreBuckets defines histogram bucket boundaries for the 0-100 turn-end
// score scale.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 65, 75, 85, 95,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("turnengine.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("turnengine.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("turnengine.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnScoreHistogram, err = m.Float64Histogram("turnengine.turn_detect.score",
		metric.WithDescription("Fused turn-end score emitted on each silence evaluation."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("turnengine.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("turnengine.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.TurnEndings, err = m.Int64Counter("turnengine.turn_detect.endings",
		metric.WithDescription("Total TURN_ENDED events emitted."),
	); err != nil {
		return nil, err
	}
	if met.BackchannelsTriggered, err = m.Int64Counter("turnengine.backchannel.triggered",
		metric.WithDescription("Total backchannel trigger decisions that fired."),
	); err != nil {
		return nil, err
	}
	if met.BackchannelsPlayed, err = m.Int64Counter("turnengine.backchannel.played",
		metric.WithDescription("Total backchannels submitted to the mixer."),
	); err != nil {
		return nil, err
	}
	if met.MixerClips, err = m.Int64Counter("turnengine.mixer.clips",
		metric.WithDescription("Total samples clipped to [-1, 1] by the mixer."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("turnengine.active_sessions",
		metric.WithDescription("Number of live conversation sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("turnengine.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTurnEnding is a convenience method that records a TURN_ENDED event.
func (m *Metrics) RecordTurnEnding(ctx context.Context) {
	m.TurnEndings.Add(ctx, 1)
}

// RecordBackchannelTriggered records a backchannel trigger firing for the
// given kind.
func (m *Metrics) RecordBackchannelTriggered(ctx context.Context, kind string) {
	m.BackchannelsTriggered.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordBackchannelPlayed records a backchannel actually submitted to the
// mixer for the given kind.
func (m *Metrics) RecordBackchannelPlayed(ctx context.Context, kind string) {
	m.BackchannelsPlayed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
