// Package template implements the two built-in workflow templates from
// spec §4.11/§4.12: withApproval (a human-in-the-loop review gate) and
// withSchedule (a delayed execution). Both are thin compositions over
// durable.RunStep and the hook package; neither depends on the agent
// factory directly, so callers supply a RunAgentFunc that runs a prompt
// to completion and returns its final text.
package template

import (
	"context"
	"fmt"
	"time"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/duration"
	"github.com/agentloom/agentcore/hook"
	"github.com/agentloom/agentcore/toolerrors"
)

// RunAgentFunc runs an agent to completion on prompt and returns its final
// text. Both templates treat it as a single opaque unit of work.
type RunAgentFunc func(ctx context.Context, prompt string) (string, error)

// StepResult records one durable step's name and wall-clock duration, for
// callers that want to inspect a template run's shape (spec §6:
// withApproval/withSchedule return `{text, steps[], usage?}`).
type StepResult struct {
	Name       string
	DurationMs int64
}

// Result is the common return shape for both templates.
type Result struct {
	Text  string
	Steps []StepResult
}

func recordStep(steps *[]StepResult, name string, start time.Time) {
	*steps = append(*steps, StepResult{Name: name, DurationMs: time.Since(start).Milliseconds()})
}

// ApprovalResponse is the payload an approval webhook resolves with (or
// the DefaultResponse delivered on timeout).
type ApprovalResponse struct {
	Approved bool
	// Feedback is reviewer commentary, surfaced in the rejection error
	// when Approved is false.
	Feedback string
	// Modifications, when set, is incorporated into the finalisation
	// prompt on approval.
	Modifications string
}

// DefaultTimeoutMs is used when ApprovalOptions.TimeoutMs is zero,
// matching the "configurable timeout" language of spec §4.11 with a
// sensible default of 24 hours for a human review gate.
const DefaultTimeoutMs = 24 * 60 * 60 * 1000

// ApprovalOptions configures WithApproval.
type ApprovalOptions struct {
	// WebhookPath is the externally visible path the webhook is created
	// under (combined with Registry-minted IDs to form a callback URL).
	WebhookPath string
	// TimeoutMs bounds how long the approval hook waits. Defaults to
	// DefaultTimeoutMs.
	TimeoutMs int64
	// DefaultResponse is delivered when the hook times out with no
	// external resolution. A nil value defaults to rejected, per spec
	// §4.11 step 3.
	DefaultResponse *ApprovalResponse
	// Registry is the hook registry the approval webhook is registered
	// against. Required when Durable is non-nil.
	Registry *hook.Registry
	// Durable, if non-nil, makes all three stages individually
	// checkpointed steps that survive a crash between them. If nil, the
	// template runs synchronously and auto-approves (developer-mode
	// convenience, spec §4.11).
	Durable durable.Engine
}

// WithApproval implements spec §4.11: draft, suspend for human approval,
// then finalise or reject.
func WithApproval(ctx context.Context, run RunAgentFunc, prompt string, opts ApprovalOptions) (Result, error) {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = DefaultTimeoutMs
	}

	var result Result

	start := time.Now()
	draftAny, err := durable.RunStep(ctx, opts.Durable, durable.StepConfig{Name: "llm-draft"}, func(ctx context.Context) (any, error) {
		return run(ctx, prompt)
	})
	recordStep(&result.Steps, "llm-draft", start)
	if err != nil {
		return result, fmt.Errorf("llm-draft step: %w", err)
	}
	draft, _ := draftAny.(string)

	response, err := resolveApproval(ctx, opts, draft, &result.Steps)
	if err != nil {
		return result, err
	}

	if !response.Approved {
		reason := response.Feedback
		if reason == "" {
			reason = "no feedback provided"
		}
		return result, toolerrors.Newf(toolerrors.KindHookRejected, "approval rejected: %s", reason)
	}

	finalizePrompt := buildFinalizePrompt(prompt, draft, response.Modifications)
	start = time.Now()
	finalAny, err := durable.RunStep(ctx, opts.Durable, durable.StepConfig{Name: "llm-finalize"}, func(ctx context.Context) (any, error) {
		return run(ctx, finalizePrompt)
	})
	recordStep(&result.Steps, "llm-finalize", start)
	if err != nil {
		return result, fmt.Errorf("llm-finalize step: %w", err)
	}
	result.Text, _ = finalAny.(string)
	return result, nil
}

// resolveApproval runs the "webhook-approval" stage. Without a durable
// runtime it auto-resolves to approved (developer-mode convenience);
// otherwise it registers a real webhook-backed hook and suspends until it
// resolves or times out.
func resolveApproval(ctx context.Context, opts ApprovalOptions, draft string, steps *[]StepResult) (ApprovalResponse, error) {
	if opts.Durable == nil {
		recordStep(steps, "webhook-approval", time.Now())
		return ApprovalResponse{Approved: true}, nil
	}

	defaultResponse := ApprovalResponse{Approved: false, Feedback: "approval request timed out"}
	if opts.DefaultResponse != nil {
		defaultResponse = *opts.DefaultResponse
	}

	// The step's own timeout is kept generous relative to the hook's
	// TimeoutMs so the hook's internal timer (which carries the
	// DefaultResponse) always resolves the wait, rather than racing
	// against an outer step deadline that carries no default at all.
	stepTimeout := duration.ToGoDuration(opts.TimeoutMs) + 30*time.Second

	start := time.Now()
	outcomeAny, err := durable.RunStep(ctx, opts.Durable, durable.StepConfig{Name: "webhook-approval", Timeout: stepTimeout}, func(ctx context.Context) (any, error) {
		wh, err := hook.CreateWebhook(opts.Registry, ctx, hook.WebhookOptions{
			Name:         "webhook-approval",
			Payload:      draft,
			TimeoutMs:    opts.TimeoutMs,
			DefaultValue: defaultResponse,
			URLBase:      opts.WebhookPath,
		})
		if err != nil {
			return nil, err
		}
		outcome := wh.Wait(ctx)
		if outcome.Err != nil {
			return nil, outcome.Err
		}
		return outcome.Result, nil
	})
	recordStep(steps, "webhook-approval", start)
	if err != nil {
		return ApprovalResponse{}, fmt.Errorf("webhook-approval step: %w", err)
	}

	resp, ok := outcomeAny.(ApprovalResponse)
	if !ok {
		return ApprovalResponse{}, toolerrors.New(toolerrors.KindFatal, "webhook-approval resolved with an unexpected payload type")
	}
	return resp, nil
}

func buildFinalizePrompt(original, draft, modifications string) string {
	if modifications == "" {
		return fmt.Sprintf("The following draft was approved. Finalise it for delivery.\n\nOriginal request: %s\n\nDraft:\n%s", original, draft)
	}
	return fmt.Sprintf("The following draft was approved with requested modifications. Finalise it for delivery, incorporating the modifications.\n\nOriginal request: %s\n\nDraft:\n%s\n\nRequested modifications:\n%s", original, draft, modifications)
}

// ScheduleOptions configures WithSchedule.
type ScheduleOptions struct {
	// Durable, if non-nil, performs the delay as a durable sleep
	// (zero compute for its duration). If nil, the delay is a best-effort
	// host timer.
	Durable durable.Engine
}

// WithSchedule implements spec §4.12: sleep for delay, then execute.
func WithSchedule(ctx context.Context, run RunAgentFunc, prompt string, delay time.Duration, opts ScheduleOptions) (Result, error) {
	var result Result

	start := time.Now()
	if opts.Durable != nil {
		if err := opts.Durable.Sleep(ctx, delay); err != nil {
			recordStep(&result.Steps, "sleep", start)
			return result, fmt.Errorf("durable sleep: %w", err)
		}
	} else {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			recordStep(&result.Steps, "sleep", start)
			return result, ctx.Err()
		}
	}
	recordStep(&result.Steps, "sleep", start)

	start = time.Now()
	text, err := run(ctx, prompt)
	recordStep(&result.Steps, "llm-generate", start)
	if err != nil {
		return result, fmt.Errorf("scheduled execution: %w", err)
	}
	result.Text = text
	return result, nil
}

// ParseDelay parses a compact duration string ("30s", "5m", "1h", "1d")
// into a time.Duration for use as WithSchedule's delay argument.
func ParseDelay(s string) (time.Duration, error) {
	ms, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	return duration.ToGoDuration(ms), nil
}
