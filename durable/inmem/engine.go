// Package inmem provides a best-effort Engine implementation with no
// crash-recovery guarantees: retries happen in-process, sleeps use the
// host's timer, and a process restart loses all in-flight step state.
// It is intended for local development and for callers who want the
// durable-step contract's retry/timeout shape without operating a real
// workflow runtime.
package inmem

import (
	"context"
	"math/rand"
	"time"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/toolerrors"
)

// Engine implements durable.Engine entirely in the calling process.
type Engine struct{}

// New constructs an in-memory Engine.
func New() *Engine { return &Engine{} }

// Ping always succeeds: the in-memory engine has no external dependency
// to probe.
func (e *Engine) Ping(context.Context) error { return nil }

// Sleep blocks for d or until ctx is cancelled, using the host's timer.
// This is best-effort: a process restart during the sleep loses the
// remaining delay, unlike a durable-runtime-backed sleep.
func (e *Engine) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunStep executes fn in-process, retrying on retryable failures up to
// cfg.Retry.MaxAttempts with exponential backoff, and bounding total
// execution by cfg.Timeout. Because this engine keeps no persisted
// record of step results, a process crash mid-step always re-executes fn
// on the next attempt — the at-most-once guarantee in spec §4.3 item 1
// only holds for backends with real checkpointing (durable/temporal).
func (e *Engine) RunStep(ctx context.Context, cfg durable.StepConfig, fn durable.StepFunc) (any, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxAttempts := cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Retry.InitialBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	coeff := cfg.Retry.BackoffCoefficient
	if coeff < 1 {
		coeff = 1
	}

	var lastErr error
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if stepCtx.Err() != nil {
			return nil, toolerrors.Wrap(toolerrors.KindTimeout, "step "+cfg.Name+" timed out", stepCtx.Err())
		}
		result, err := fn(stepCtx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if toolerrors.Is(err, toolerrors.KindFatal) {
			return nil, err
		}
		kind, hasKind := toolerrors.KindOf(err)
		if hasKind && !kind.Retryable() {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
		select {
		case <-time.After(backoff + jitter/4):
		case <-stepCtx.Done():
			return nil, toolerrors.Wrap(toolerrors.KindTimeout, "step "+cfg.Name+" timed out during backoff", stepCtx.Err())
		}
		backoff = time.Duration(float64(backoff) * coeff)
	}
	return nil, toolerrors.Wrap(toolerrors.KindToolExecution, "step "+cfg.Name+" exhausted retry budget", lastErr)
}
