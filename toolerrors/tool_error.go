// Package toolerrors provides the structured error taxonomy (spec §7) used
// across agentcore: tool validation failures, unknown-tool references,
// retryable execution errors, fatal failures, timeouts, usage-limit
// overruns, hook-registry errors, cancellation, and guardrail blocks.
//
// Errors preserve causal chains via Cause so they support errors.Is/As
// while still carrying a stable, serializable Kind that callers can branch
// on without string matching.
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the stable categories from spec §7.
// Kind is the basis for exhaustive handling: callers should switch on Kind
// rather than inspect error messages.
type Kind string

const (
	// KindValidation marks a tool input that failed schema validation.
	KindValidation Kind = "validation-error"
	// KindUnknownTool marks a model-issued tool call referencing a tool
	// that is not present in the agent's tool set.
	KindUnknownTool Kind = "unknown-tool"
	// KindToolExecution marks a transient failure raised by a tool
	// executor. Retryable by the durable step wrapper up to its budget.
	KindToolExecution Kind = "tool-execution-error"
	// KindFatal marks a non-recoverable condition (malformed credentials,
	// policy violation) that must stop the loop and not be retried.
	KindFatal Kind = "fatal"
	// KindTimeout marks a step that exceeded its configured budget.
	// Retryable unless the tool marks the underlying cause fatal.
	KindTimeout Kind = "timeout"
	// KindUsageLimitExceeded marks a run that surpassed a configured
	// usage limit (input/output/total tokens or request count).
	KindUsageLimitExceeded Kind = "usage-limit-exceeded"
	// KindHookNotFound marks a Resume/Reject call against an unknown hook ID.
	KindHookNotFound Kind = "hook-not-found"
	// KindHookNotPending marks a Resume/Reject call against a hook whose
	// status is already terminal.
	KindHookNotPending Kind = "hook-not-pending"
	// KindHookRejected marks a hook future that resolved via Reject.
	KindHookRejected Kind = "hook-rejected"
	// KindCancelled marks a run that stopped due to cooperative cancellation.
	KindCancelled Kind = "cancelled"
	// KindGuardrailBlocked marks output that failed a guardrail configured
	// in block mode.
	KindGuardrailBlocked Kind = "guardrail-blocked"
)

// Retryable reports whether errors of this kind are, by default, eligible
// for the durable step wrapper's retry policy (spec §4.3, §7). Fatal
// errors and terminal control-flow kinds are never retryable.
func (k Kind) Retryable() bool {
	switch k {
	case KindToolExecution, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is the concrete structured error type returned by tool executors,
// the hook registry, the durable step wrapper, and the tool-loop engine.
// It implements error, and supports errors.Is/As through Unwrap so callers
// can test for a specific Kind with toolerrors.Is(err, toolerrors.KindFatal)
// (see Is). When Message equals the cause's text (as Wrap produces for an
// empty message), Error prints it once.
type Error struct {
	// Kind is the stable category for this error.
	Kind Kind
	// Message is the human-readable summary.
	Message string
	// Cause links to the wrapped error, if any, preserving the chain
	// across retries and sub-agent boundaries.
	Cause error
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs an Error of the given kind wrapping cause. If message is
// empty, the cause's message is used.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil && e.Message != e.Cause.Error() {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, supporting errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether err is a *Error whose Kind matches kind. It is the
// idiomatic way to test for a specific error category:
//
//	if toolerrors.Is(err, toolerrors.KindFatal) { ... }
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// reports whether extraction succeeded.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
