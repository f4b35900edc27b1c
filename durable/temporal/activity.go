package temporal

import (
	"context"
	"sync"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/toolerrors"
)

// dispatch is a process-wide side table mapping step names to the
// in-flight StepFunc they should invoke, replacing the source's
// symbol-keyed metadata pattern (DESIGN NOTES) with an explicit map
// guarded by a mutex. Entries are registered immediately before
// scheduling the corresponding activity and removed immediately after,
// so the table only ever holds truly in-flight steps.
var dispatch = struct {
	mu sync.RWMutex
	m  map[string]durable.StepFunc
}{m: make(map[string]durable.StepFunc)}

// RegisterStepFunc records fn under name so the StepActivity handler can
// find it when Temporal invokes the activity. Called internally by
// Engine.RunStep; exposed so a custom activity implementation can reuse
// the same dispatch table.
func RegisterStepFunc(name string, fn durable.StepFunc) {
	dispatch.mu.Lock()
	defer dispatch.mu.Unlock()
	dispatch.m[name] = fn
}

func unregisterStepFunc(name string) {
	dispatch.mu.Lock()
	defer dispatch.mu.Unlock()
	delete(dispatch.m, name)
}

// StepActivity is the Temporal activity function callers must register
// under StepActivityName on their worker. It looks up the StepFunc
// registered for name and invokes it with the activity's context.
func StepActivity(ctx context.Context, name string) (any, error) {
	dispatch.mu.RLock()
	fn, ok := dispatch.m[name]
	dispatch.mu.RUnlock()
	if !ok {
		return nil, toolerrors.Newf(toolerrors.KindFatal, "no step function registered for %q", name)
	}
	return fn(ctx)
}
