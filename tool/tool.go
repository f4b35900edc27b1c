// Package tool defines the ToolSpec and ToolContext entities (spec §3):
// the named capabilities an Agent exposes to the LLM, and the per-call
// context handed to their executors.
package tool

import (
	"context"
	"encoding/json"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema wraps a compiled JSON Schema used to validate tool input before
// invocation (spec §4.9 step 3). Callers build one with Compile.
type Schema struct {
	raw      []byte
	compiled *jsonschema.Schema
}

// Compile parses and compiles a JSON Schema document describing a tool's
// input shape. name is the resource URI the compiler registers the
// schema under; it need not be a real URL, only unique within the
// compiler instance.
func Compile(name string, rawSchema []byte) (*Schema, error) {
	var doc any
	if err := json.Unmarshal(rawSchema, &doc); err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, err
	}
	return &Schema{raw: rawSchema, compiled: compiled}, nil
}

// Validate checks input (already unmarshalled into a generic
// map[string]any / []any / primitive tree, per jsonschema/v6's
// validation API) against the compiled schema. A nil Schema always
// validates successfully, matching tools that accept unconstrained
// input.
func (s *Schema) Validate(input any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	return s.compiled.Validate(input)
}

// Raw returns the original JSON Schema document bytes.
func (s *Schema) Raw() []byte {
	if s == nil {
		return nil
	}
	return s.raw
}

// Result is the outcome of a tool invocation: exactly one of Value or Err
// is meaningful, matching the sum-type re-architecture called for by the
// DESIGN NOTES (no boolean success flag with optional fields).
type Result struct {
	Value any
	Err   error
}

// Ok constructs a successful Result.
func Ok(value any) Result { return Result{Value: value} }

// ErrResult constructs a failed Result.
func ErrResult(err error) Result { return Result{Err: err} }

// Executor performs the tool's work given validated input and a
// ToolContext.
type Executor func(ctx context.Context, input map[string]any, tc *Context) Result

// Spec describes a single named capability offered to the LLM (spec §3
// ToolSpec). Tool names are unique per agent. A wrapped tool (for
// durability, retry, or approval) must preserve the Name, Description,
// and Schema of the underlying tool it wraps.
type Spec struct {
	Name        string
	Description string
	Schema      *Schema
	Execute     Executor
	// Independent marks this tool as safe to run concurrently with other
	// independent tool calls within the same tool-loop step (spec §4.3
	// item 4, §4.9 step 3).
	Independent bool
}

// Context is passed to every executor (spec §3 ToolContext). It is owned
// by the tool-loop for the duration of one execution and must not be
// shared across concurrent tool calls.
type Context struct {
	// Stream, if non-nil, receives incremental output from the executor.
	// toolloop.Run leaves it nil and does not forward anything written to
	// it onto the event stream.
	Stream io.Writer
	// AgentID identifies the agent instance executing this tool.
	AgentID string
	// StepIndex is the tool-loop step this call belongs to.
	StepIndex int
	// ParentAgentID is set when this agent is a spawned sub-agent.
	ParentAgentID string
	// WorkflowRunID identifies the durable workflow run backing this
	// execution. toolloop.Run does not set it, even with a durable runtime.
	WorkflowRunID string
	// WorkspaceRoot is the absolute path tools should scope file/shell
	// operations to.
	WorkspaceRoot string
	// Metadata carries arbitrary caller-supplied key-values.
	Metadata map[string]any
}
