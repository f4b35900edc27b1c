// Package temporal adapts a Temporal workflow.Context into a
// durable.Engine, giving agentcore real crash-recoverable steps and
// durable sleeps when the caller's workflow runs on a Temporal worker.
//
// The adapter is intended for workflows that host agentcore's tool-loop
// (spec §4.9) as one participant among other Temporal-orchestrated work:
// the caller owns workflow/activity registration and worker lifecycle;
// this package only translates durable.Engine calls into
// workflow.ExecuteActivity / workflow.Sleep so RunStep/Sleep behave
// correctly from inside a deterministic workflow function.
package temporal

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/toolerrors"
)

// StepActivityName is the Temporal activity name registered by callers to
// back durable.Engine.RunStep. The handler to register is StepActivity,
// which invokes the durable.StepFunc recorded for the step name via
// RegisterStepFunc.
const StepActivityName = "agentcore.RunStep"

// Engine implements durable.Engine atop a single Temporal workflow
// execution. Construct one per workflow.Context; Engine is not safe to
// share across workflow executions (matching workflow.Context's own
// lifetime rules).
type Engine struct {
	ctx workflow.Context
}

// New adapts ctx into a durable.Engine. Activities named StepActivityName
// must be registered on the worker; see StepActivity.
func New(ctx workflow.Context) *Engine {
	return &Engine{ctx: ctx}
}

// Ping always succeeds inside an active workflow execution: reachability
// of the Temporal runtime is implied by the workflow function currently
// running.
func (e *Engine) Ping(context.Context) error { return nil }

// Sleep performs a durable timer via workflow.Sleep, consuming zero
// compute for the duration of the delay and surviving worker restarts.
func (e *Engine) Sleep(_ context.Context, d time.Duration) error {
	return workflow.Sleep(e.ctx, d)
}

// RunStep schedules fn as a StepActivityName activity keyed by cfg.Name
// (falling back to "step" when empty), with retry and timeout options
// derived from cfg. cfg.Retry.MaxAttempts counts retries after the first
// try, so Temporal's MaximumAttempts is set one higher. Temporal guarantees the activity is recorded in the
// workflow history: a worker crash after the activity completes but
// before the workflow observes the result replays the recorded result
// rather than re-invoking fn (spec §4.3 item 1).
//
// Because Temporal activities must be registered ahead of time with a
// fixed Go function signature, fn itself cannot cross the
// workflow/activity boundary directly; this method records fn via
// RegisterStepFunc in a process-wide dispatch table keyed by cfg.Name
// (removing it again on return), and schedules StepActivityName with
// cfg.Name as the dispatch key.
func (e *Engine) RunStep(ctx context.Context, cfg durable.StepConfig, fn durable.StepFunc) (any, error) {
	name := cfg.Name
	if name == "" {
		name = "step"
	}
	RegisterStepFunc(name, fn)
	defer unregisterStepFunc(name)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxAttempts := int32(cfg.Retry.MaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	initialInterval := cfg.Retry.InitialBackoff
	if initialInterval <= 0 {
		initialInterval = 100 * time.Millisecond
	}
	coeff := cfg.Retry.BackoffCoefficient
	if coeff < 1 {
		coeff = 1
	}

	actCtx := workflow.WithActivityOptions(e.ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    initialInterval,
			BackoffCoefficient: coeff,
			MaximumAttempts:    maxAttempts + 1,
			NonRetryableErrorTypes: []string{
				string(toolerrors.KindFatal),
			},
		},
	})

	var result any
	future := workflow.ExecuteActivity(actCtx, StepActivityName, name)
	if err := future.Get(actCtx, &result); err != nil {
		if temporal.IsCanceledError(err) {
			return nil, toolerrors.Wrap(toolerrors.KindCancelled, name, context.Canceled)
		}
		return nil, toolerrors.Wrap(toolerrors.KindToolExecution, "step "+name+" failed", err)
	}
	return result, nil
}
