// Package durable defines the pluggable durable-runtime contract (spec
// §4.3/§4.4/§9) and the step wrapper that turns a tool execution or
// arbitrary thunk into a named, checkpointable, retryable unit.
//
// There is no global singleton here (per the DESIGN NOTES' re-architecture
// of the source's dynamic-module-loading pattern): callers construct an
// Engine implementation explicitly (durable/inmem for best-effort
// in-process durability, durable/temporal when running inside a Temporal
// workflow) and pass it to the agent factory (agent.Config.Durable),
// which probes it through a Detector. Absence of an
// Engine is the first-class "no durable runtime" case, not a caught
// import failure.
package durable

import (
	"context"
	"time"
)

// StepFunc is the unit of work a step wraps. It must not mutate its
// closure's captured input in a way observable outside the step (the
// wrapper promises input/output are passed through unmodified).
type StepFunc func(ctx context.Context) (any, error)

// RetryPolicy controls how a step is retried on a retryable failure.
type RetryPolicy struct {
	// MaxAttempts caps retry attempts after the first try. Zero means use
	// the step default (3, per spec §4.3).
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// BackoffCoefficient multiplies the delay after each retry. Values
	// below 1 are treated as 1 (constant backoff).
	BackoffCoefficient float64
}

// StepConfig configures a single RunStep invocation.
type StepConfig struct {
	// Name is the step's checkpoint name. Defaults to
	// "tool-exec-{toolName}" for tool-backed steps (spec §4.3).
	Name string
	// Timeout bounds the step's execution, including retries. Zero means
	// the step default (5m, per spec §4.3).
	Timeout time.Duration
	// Retry controls the retry policy for retryable failures.
	Retry RetryPolicy
	// Independent marks this step as schedulable concurrently with other
	// independent steps in the same tool-loop iteration (spec §4.3 item
	// 4). The wrapper only records the marker; the engine decides the
	// actual schedule.
	Independent bool
}

// Engine abstracts a durable execution backend. Implementations translate
// RunStep/Sleep into backend-specific checkpointed primitives (Temporal
// activities/timers, or an in-process best-effort approximation).
//
// Implementations must guarantee: the wrapped StepFunc is invoked at most
// once observably for a given (workflow-run-id, step-name) pair across
// process restarts, when the backend supports crash recovery (spec §4.3
// item 1). Backends that cannot offer this (durable/inmem) document the
// degradation explicitly.
type Engine interface {
	// RunStep executes fn as a named, checkpointed step per cfg.
	RunStep(ctx context.Context, cfg StepConfig, fn StepFunc) (any, error)

	// Sleep performs a durable delay. Under Temporal this consumes zero
	// compute for the duration of the sleep.
	Sleep(ctx context.Context, d time.Duration) error

	// Ping verifies the runtime backend is reachable. Used by the
	// one-shot Runtime Detector (spec §4.4); must not block indefinitely.
	Ping(ctx context.Context) error
}
