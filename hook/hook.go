// Package hook implements the Hook Registry (spec §4.2): the process-wide
// table of pending human-in-the-loop suspensions and their resolvers.
//
// A hook is a typed future that completes in exactly one of four terminal
// states: resolved, rejected, timed out, or (absent a timeout) never. The
// registry is the single serialization point for hook state transitions,
// so concurrent Resume/Reject/timeout races always produce exactly one
// winner (testable property §8.2).
package hook

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentloom/agentcore/telemetry"
	"github.com/agentloom/agentcore/toolerrors"
)

// Status is the lifecycle state of a HookInstance. Transitions are
// monotonic: {Pending} -> {Resolved | Rejected | TimedOut}, once terminal
// the status never changes (testable property §8.1).
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
	StatusTimedOut Status = "timed_out"
)

// Validator checks a caller-supplied result before a hook is allowed to
// resolve. Returning an error keeps the hook pending (spec §4.2 Resume).
type Validator func(result any) error

// Options configures an individual Register call.
type Options struct {
	// Description is shown to the resolver (typically a human) alongside
	// the payload.
	Description string
	// TimeoutMs, if non-zero, arms a timer that transitions the hook to
	// TimedOut if no Resume/Reject arrives first. Without DefaultValue the
	// timeout delivers a nil Result, and Register logs a warning.
	TimeoutMs int64
	// DefaultValue is delivered to the waiting caller when the hook times
	// out.
	DefaultValue any
	// Validate is run against a Resume payload before the hook is allowed
	// to transition to Resolved.
	Validate Validator
}

// HookInstance is a live suspension tracked by the registry. Attributes
// mirror spec §3's HookInstance entity.
type HookInstance struct {
	ID           string
	Name         string
	Description  string
	Payload      any
	Status       Status
	CreatedAt    time.Time
	ResolvedAt   time.Time
	TimeoutMs    int64
	Result       any
	RejectReason string
}

// snapshot returns a value copy safe to hand to callers of List.
func (h *HookInstance) snapshot() HookInstance {
	return *h
}

// Outcome is delivered on the future returned by Register. Exactly one of
// Result/Err is meaningful: a timed-out hook with no DefaultValue still
// resolves the future with a zero Result value, matching spec §4.2.
type Outcome struct {
	Status Status
	Result any
	Err    error
}

type entry struct {
	inst      *HookInstance
	validate  Validator
	resultCh  chan Outcome
	timer     *time.Timer
	closeOnce sync.Once
}

// Registry is the process-wide table of pending hooks. The zero value is
// not usable; construct with New. A Registry is safe for concurrent use
// from parallel execution contexts.
type Registry struct {
	mu      sync.Mutex
	hooks   map[string]*entry
	counter uint64
	logger  telemetry.Logger
}

// New constructs an empty Registry. logger may be nil, in which case a
// no-op logger is used.
func New(logger telemetry.Logger) *Registry {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Registry{hooks: make(map[string]*entry), logger: logger}
}

// NewID synthesizes a globally unique hook ID of the form
// hook-{name}-{base36-timestamp}-{6-char-random}-{monotonic-counter},
// designed to avoid collisions under parallel Register calls across
// goroutines (spec §4.2).
func (r *Registry) NewID(name string) string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	randPart := randomBase32(6)
	n := atomic.AddUint64(&r.counter, 1)
	return fmt.Sprintf("hook-%s-%s-%s-%d", name, ts, randPart, n)
}

func randomBase32(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failures are effectively unrecoverable on any real
		// platform; fall back to a counter-derived value rather than panic.
		for i := range buf {
			buf[i] = byte(time.Now().UnixNano() >> (i * 8))
		}
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	if len(enc) > n {
		enc = enc[:n]
	}
	return enc
}

// Register creates a new pending hook under id with the given name and
// payload, and returns a function that blocks until the hook reaches a
// terminal state (or ctx is cancelled). Register fails if id already
// exists in the registry.
func (r *Registry) Register(ctx context.Context, id, name string, payload any, opts Options) (func(context.Context) Outcome, error) {
	if opts.TimeoutMs > 0 && opts.DefaultValue == nil {
		r.logger.Warn(ctx, "hook registered with timeout but no default value; timeout will resolve to zero value", "name", name, "id", id)
	}

	r.mu.Lock()
	if _, exists := r.hooks[id]; exists {
		r.mu.Unlock()
		return nil, toolerrors.Newf(toolerrors.KindValidation, "hook id %q already registered", id)
	}

	inst := &HookInstance{
		ID:          id,
		Name:        name,
		Description: opts.Description,
		Payload:     payload,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		TimeoutMs:   opts.TimeoutMs,
	}
	e := &entry{
		inst:     inst,
		validate: opts.Validate,
		resultCh: make(chan Outcome, 1),
	}
	r.hooks[id] = e
	if opts.TimeoutMs > 0 {
		e.timer = time.AfterFunc(time.Duration(opts.TimeoutMs)*time.Millisecond, func() {
			r.timeout(id, opts.DefaultValue)
		})
	}
	r.mu.Unlock()

	return func(waitCtx context.Context) Outcome {
		select {
		case out := <-e.resultCh:
			return out
		case <-waitCtx.Done():
			return Outcome{Status: StatusPending, Err: waitCtx.Err()}
		}
	}, nil
}

// Resume transitions the hook to Resolved, atomically checking-and-setting
// status from Pending first so a concurrent timeout cannot double-resolve
// (testable property §8.2). If the validator rejects the payload, the
// status is rolled back to Pending and the validator error is returned;
// the suspended future remains unresolved.
func (r *Registry) Resume(id string, result any) error {
	r.mu.Lock()
	e, ok := r.hooks[id]
	if !ok {
		r.mu.Unlock()
		return toolerrors.Newf(toolerrors.KindHookNotFound, "hook %q not found", id)
	}
	if e.inst.Status != StatusPending {
		observed := e.inst.Status
		r.mu.Unlock()
		return toolerrors.Newf(toolerrors.KindHookNotPending, "hook %q is %s, not pending", id, observed)
	}
	// Claim the transition before running the validator so a racing
	// timeout sees a non-pending status and backs off.
	e.inst.Status = StatusResolved
	r.mu.Unlock()

	if e.validate != nil {
		if err := e.validate(result); err != nil {
			r.mu.Lock()
			e.inst.Status = StatusPending
			r.mu.Unlock()
			return err
		}
	}

	r.mu.Lock()
	e.inst.ResolvedAt = time.Now()
	e.inst.Result = result
	r.mu.Unlock()

	r.finalize(e, Outcome{Status: StatusResolved, Result: result})
	return nil
}

// Reject transitions the hook to Rejected with the given reason, using the
// same status-guard policy as Resume.
func (r *Registry) Reject(id string, reason string) error {
	r.mu.Lock()
	e, ok := r.hooks[id]
	if !ok {
		r.mu.Unlock()
		return toolerrors.Newf(toolerrors.KindHookNotFound, "hook %q not found", id)
	}
	if e.inst.Status != StatusPending {
		observed := e.inst.Status
		r.mu.Unlock()
		return toolerrors.Newf(toolerrors.KindHookNotPending, "hook %q is %s, not pending", id, observed)
	}
	e.inst.Status = StatusRejected
	e.inst.ResolvedAt = time.Now()
	e.inst.RejectReason = reason
	r.mu.Unlock()

	r.finalize(e, Outcome{
		Status: StatusRejected,
		Err:    toolerrors.Newf(toolerrors.KindHookRejected, "%s", reason),
	})
	return nil
}

// timeout transitions the hook to TimedOut if it is still pending by the
// time the timer fires. A concurrent Resume/Reject that already claimed
// the transition wins; timeout is then a no-op.
func (r *Registry) timeout(id string, defaultValue any) {
	r.mu.Lock()
	e, ok := r.hooks[id]
	if !ok || e.inst.Status != StatusPending {
		r.mu.Unlock()
		return
	}
	e.inst.Status = StatusTimedOut
	e.inst.ResolvedAt = time.Now()
	e.inst.Result = defaultValue
	r.mu.Unlock()

	r.finalize(e, Outcome{Status: StatusTimedOut, Result: defaultValue})
}

// finalize releases the timer and delivers the terminal outcome exactly
// once. It does not remove the entry from the map: List/inspection
// endpoints must still be able to see terminal hooks.
func (r *Registry) finalize(e *entry, out Outcome) {
	e.closeOnce.Do(func() {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.resultCh <- out
	})
}

// Get returns a snapshot of the named hook, or false if it does not exist.
func (r *Registry) Get(id string) (HookInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.hooks[id]
	if !ok {
		return HookInstance{}, false
	}
	return e.inst.snapshot(), true
}

// List returns a snapshot of all hooks, optionally filtered to a single
// status.
func (r *Registry) List(status ...Status) []HookInstance {
	var filter Status
	if len(status) > 0 {
		filter = status[0]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HookInstance, 0, len(r.hooks))
	for _, e := range r.hooks {
		if filter != "" && e.inst.Status != filter {
			continue
		}
		out = append(out, e.inst.snapshot())
	}
	return out
}

// Clear cancels all pending timers and empties the registry. Intended for
// test/teardown use only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.hooks {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	r.hooks = make(map[string]*entry)
}
