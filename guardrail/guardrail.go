// Package guardrail implements the Guardrail Runner (spec §4.6): an
// ordered pipeline of content checks applied to tool-loop output (and
// optionally input) text.
package guardrail

import "context"

// Phase identifies which side of a tool-loop run a guardrail is checking.
type Phase string

const (
	// PhaseInput runs against the incoming user prompt.
	PhaseInput Phase = "input"
	// PhaseOutput runs against the tool loop's final assistant text.
	PhaseOutput Phase = "output"
)

// Mode controls how the Runner reacts to a blocked verdict.
type Mode int

const (
	// ModeFilter returns the filtered text and records which guards fired.
	// This is the default for the output phase.
	ModeFilter Mode = iota
	// ModeBlock returns a policy-violation marker instead of any text.
	ModeBlock
)

// CheckInput is passed to a Guardrail's Check.
type CheckInput struct {
	Prompt string
	Phase  Phase
}

// Verdict is the structured result of a single guardrail check. Exactly
// one of FilteredText or Blocked is meaningful when Passed is false.
type Verdict struct {
	Passed       bool
	FilteredText string
	Blocked      string
}

// Guardrail is a single named pipeline element.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, text string, in CheckInput) (Verdict, error)
}

// Result is the outcome of running the full pipeline.
type Result struct {
	// Text is the final text: unchanged, filtered, or (in ModeBlock when a
	// guard blocked) the policy-violation marker.
	Text string
	// Blocked reports whether a guard blocked and Mode was ModeBlock.
	Blocked bool
	// FiredGuards lists the names of guards that did not pass, in
	// execution order, regardless of mode.
	FiredGuards []string
}

// PolicyViolationMarker is substituted for Text when a guardrail blocks
// and the runner is configured in ModeBlock.
const PolicyViolationMarker = "[content removed: policy violation]"

// Runner executes an ordered Guardrail pipeline.
type Runner struct {
	guardrails []Guardrail
	mode       Mode
}

// NewRunner builds a Runner over guardrails, executed in the given order.
func NewRunner(mode Mode, guardrails ...Guardrail) *Runner {
	return &Runner{guardrails: guardrails, mode: mode}
}

// Run applies the pipeline to text in left-to-right order: later guards see
// the already-filtered text from earlier ones. If every guardrail passes,
// text is returned unchanged. In ModeBlock a guard's Blocked verdict ends
// the run and the result carries PolicyViolationMarker; in ModeFilter the
// run continues with text unchanged by that guard (its name is still
// recorded in FiredGuards).
func (r *Runner) Run(ctx context.Context, text string, phase Phase) (Result, error) {
	current := text
	var fired []string
	blocked := false

	for _, g := range r.guardrails {
		v, err := g.Check(ctx, current, CheckInput{Prompt: text, Phase: phase})
		if err != nil {
			return Result{}, err
		}
		if v.Passed {
			continue
		}
		fired = append(fired, g.Name())
		if v.Blocked != "" {
			blocked = true
			if r.mode == ModeBlock {
				return Result{Text: PolicyViolationMarker, Blocked: true, FiredGuards: fired}, nil
			}
			continue
		}
		if v.FilteredText != "" {
			current = v.FilteredText
		}
	}

	return Result{Text: current, Blocked: blocked && r.mode == ModeBlock, FiredGuards: fired}, nil
}
