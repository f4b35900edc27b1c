package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NoopLogger discards every log call. It is the default Logger when no
// telemetry exporter is configured, so agentcore never requires an
// exporter to function.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, ...any) {}
func (NoopLogger) Info(context.Context, string, ...any)  {}
func (NoopLogger) Warn(context.Context, string, ...any)  {}
func (NoopLogger) Error(context.Context, string, ...any) {}

// NoopMetrics discards every metric call.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, float64, ...string)            {}
func (NoopMetrics) RecordTimer(string, time.Duration, ...string)     {}
func (NoopMetrics) RecordGauge(string, float64, ...string)           {}

// NoopTracer returns a NoopSpan from every Start/Span call.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, Span) {
	return ctx, NoopSpan{}
}

func (NoopTracer) Span(context.Context) Span { return NoopSpan{} }

// NoopSpan discards every span operation.
type NoopSpan struct{}

func (NoopSpan) End(...trace.SpanEndOption)                  {}
func (NoopSpan) AddEvent(string, ...any)                      {}
func (NoopSpan) SetStatus(codes.Code, string)                 {}
func (NoopSpan) RecordError(error, ...trace.EventOption)      {}
