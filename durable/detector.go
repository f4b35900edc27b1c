package durable

import (
	"context"
	"sync"

	"github.com/agentloom/agentcore/telemetry"
)

// Detector caches a one-shot probe of whether a durable Engine is present
// and reachable (spec §4.4). Unlike the source's dynamic-module-loading
// pattern, the Engine itself is supplied explicitly at construction; the
// detector's job is reduced to caching a single reachability check (e.g. a
// Temporal client ping) so repeated agent initializations don't re-probe.
//
// There is no process-wide singleton: each Agent owns its own Detector,
// matching the DESIGN NOTES' requirement to eliminate global
// reset-cache test helpers. A fresh probe is simply a fresh Detector.
type Detector struct {
	engine Engine
	once   sync.Once
	ok     bool
	logger telemetry.Logger
}

// NewDetector constructs a Detector bound to engine (which may be nil,
// meaning no durable runtime was configured at all).
func NewDetector(engine Engine, logger telemetry.Logger) *Detector {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Detector{engine: engine, logger: logger}
}

// Detect returns whether a durable runtime is present and reachable. The
// underlying probe runs at most once per Detector; subsequent calls are
// O(1). Detect never panics or returns an error to the caller: an
// unavailable runtime is reported as a negative and logged at debug level.
func (d *Detector) Detect(ctx context.Context) bool {
	d.once.Do(func() {
		if d.engine == nil {
			d.logger.Debug(ctx, "no durable runtime configured")
			return
		}
		if err := d.engine.Ping(ctx); err != nil {
			d.logger.Debug(ctx, "durable runtime ping failed", "error", err)
			return
		}
		d.ok = true
	})
	return d.ok
}

// Engine returns the bound Engine if the runtime was detected, or nil
// otherwise — convenient for call sites that want "detected engine or
// transparent passthrough" in one step.
func (d *Detector) Engine(ctx context.Context) Engine {
	if d.Detect(ctx) {
		return d.engine
	}
	return nil
}
