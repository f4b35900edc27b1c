// Package telemetry defines the logging, metrics, and tracing interfaces
// used throughout agentcore. The no-op backend in this package implements
// these interfaces; the tool-loop engine, durable step wrapper,
// and hook registry depend only on the interfaces so callers can swap
// exporters without touching core logic.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log lines at four levels. Implementations
	// must be safe for concurrent use; the tool-loop engine logs from
	// multiple in-flight tool executions when durability is independent.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. Tag arguments are
	// flattened key-value string pairs (k1, v1, k2, v2, ...).
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer creates and retrieves spans for distributed tracing across
	// the tool-loop, durable steps, and sub-agent spawns.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is a single unit of tracing work.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}

	// Provider bundles the three telemetry surfaces so callers pass a
	// single handle into the Public Agent Factory.
	Provider struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// NoopProvider returns a Provider whose Logger/Metrics/Tracer discard all
// calls. Nothing in the module selects it from the telemetry env vars.
func NoopProvider() Provider {
	return Provider{Logger: NoopLogger{}, Metrics: NoopMetrics{}, Tracer: NoopTracer{}}
}
