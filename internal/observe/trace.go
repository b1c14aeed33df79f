package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the turn-engine tracer.
const tracerName = "github.com/MrWong99/turnengine"

// sessionIDAttrKey tags a span with the voice connection it belongs to, so a
// trace backend can group every span a session produced over its lifetime
// (VAD processing, STT dispatch, response generation) regardless of which
// goroutine emitted it.
const sessionIDAttrKey = attribute.Key("turnengine.session_id")

// WithSessionID returns a [trace.SpanStartOption] that tags the started span
// with the owning session's ID.
func WithSessionID(sessionID string) trace.SpanStartOption {
	return trace.WithAttributes(sessionIDAttrKey.String(sessionID))
}

// Tracer returns the package-level [trace.Tracer] for the turn-taking
// engine. It uses the globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns an [slog.Logger] enriched with trace_id and span_id from
// the OTel span context in ctx. When no active span is present, the returned
// logger is the default slog logger without extra attributes.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
