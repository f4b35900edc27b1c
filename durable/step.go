package durable

import (
	"context"
)

// defaultRetryAttempts matches spec §4.3's default retryCount of 3.
const defaultRetryAttempts = 3

// defaultStepName is the step name used when cfg.Name is empty.
const defaultStepName = "step"

// RunStep wraps fn as a durable step named cfg.Name (or a generated
// default) atop engine. When engine is nil — no durable runtime detected
// — the wrapper is transparent: fn is invoked directly and the "use step"
// marker is a no-op, matching spec §4.3 item 5. The wrapper never
// modifies fn's input or output; it only interposes execution and records
// result metadata via the engine.
func RunStep(ctx context.Context, engine Engine, cfg StepConfig, fn StepFunc) (any, error) {
	if cfg.Name == "" {
		cfg.Name = defaultStepName
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = defaultRetryAttempts
	}
	if engine == nil {
		return fn(ctx)
	}
	return engine.RunStep(ctx, cfg, fn)
}

// ToolStepName builds the default step name for a tool execution, per
// spec §4.3's "tool-exec-{toolName}" convention.
func ToolStepName(toolName string) string {
	return "tool-exec-" + toolName
}
