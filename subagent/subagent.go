// Package subagent implements the Sub-Agent Spawning Protocol (spec
// §4.10): a `spawn_agent` tool that lets a running agent recursively
// create a depth-limited, role-specialised child agent, multiplexing the
// child's event stream onto the parent's as typed sub-agent chunks.
//
// The package does not know how to construct an Agent itself (that would
// create an import cycle with the agent factory); callers supply a
// RunChild function that builds and runs the child, keeping subagent
// generic over whatever the Public Agent Factory ends up being.
package subagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/telemetry"
	"github.com/agentloom/agentcore/tool"
	"github.com/agentloom/agentcore/toolloop"
)

// Role identifies a child's specialisation (spec §3 SubAgentSpawnRequest).
// The fixed set below ships with built-in instructions; any other string
// is accepted as a user-defined role with generic instructions.
type Role string

const (
	RoleCoder      Role = "coder"
	RoleResearcher Role = "researcher"
	RoleAnalyst    Role = "analyst"
	RoleGeneric    Role = "generic"
)

// DefaultMaxDepth bounds recursive spawning (spec §4.10 step 1).
const DefaultMaxDepth = 2

// ChildMaxSteps is the reduced step budget given to a spawned child
// (spec §4.10 step 2).
const ChildMaxSteps = 15

// SummarizeThreshold is the character count above which a child's final
// text is summarised rather than returned verbatim (spec §4.10 step 4).
const SummarizeThreshold = 500

// TruncationMarker is appended to a best-effort truncated fallback when
// summarisation itself fails.
const TruncationMarker = "... [truncated]"

// RoleConfig carries the specialised instructions for a role.
type RoleConfig struct {
	Instructions string
}

// DefaultRoles is the built-in role configuration table.
var DefaultRoles = map[Role]RoleConfig{
	RoleCoder: {Instructions: "You are a focused coding sub-agent. Read the surrounding " +
		"code before editing, make the smallest change that satisfies the task, and report " +
		"exactly what you changed."},
	RoleResearcher: {Instructions: "You are a research sub-agent. Gather and synthesise " +
		"information relevant to the task; cite where facts came from when possible."},
	RoleAnalyst: {Instructions: "You are an analysis sub-agent. Examine the given material, " +
		"identify patterns or issues, and report findings concisely."},
	RoleGeneric: {Instructions: "You are a general-purpose sub-agent. Complete the given task " +
		"directly and report the result."},
}

// resolveRole returns the configuration for role, falling back to a
// generic-flavoured config naming the custom role when role is not in
// the table (spec §3: "a user-defined role name" is permitted).
func resolveRole(roles map[Role]RoleConfig, role Role) RoleConfig {
	if cfg, ok := roles[role]; ok {
		return cfg
	}
	return RoleConfig{Instructions: fmt.Sprintf(
		"You are a sub-agent specialised as %q. Complete the given task directly and report the result.", role)}
}

// ChunkStatus is the lifecycle state of a forwarded sub-agent chunk.
type ChunkStatus string

const (
	StatusStreaming ChunkStatus = "streaming"
	StatusComplete  ChunkStatus = "complete"
)

// Chunk is a typed sub-agent event forwarded onto the parent's stream
// (spec §4.10 step 3).
type Chunk struct {
	AgentID string
	Role    Role
	Text    string
	Status  ChunkStatus
}

// ChildRequest describes the child agent a RunChild implementation must
// construct and run.
type ChildRequest struct {
	// Name is "{parent-name}/{role}".
	Name string
	// AgentID is a fresh identifier for the child instance.
	AgentID string
	Role    Role
	// Instructions are the role's specialised system-prompt instructions.
	Instructions  string
	WorkspaceRoot string
	// Task and Context are the spawn_agent tool call's arguments.
	Task    string
	Context string
	// MaxSteps is the child's step budget (ChildMaxSteps).
	MaxSteps int
	// Depth is the child's spawn depth (parent depth + 1).
	Depth int
	// AllowSpawn reports whether the child's own spawn_agent tool should
	// be enabled; false once Depth reaches MaxDepth.
	AllowSpawn bool
}

// RunChildFunc constructs and runs a child agent for req, returning its
// streaming handle. An error return means the child could not be started
// at all (spec §4.10 step 5's "child error" case).
type RunChildFunc func(ctx context.Context, req ChildRequest) (*toolloop.Handle, error)

// Outcome is the spawn_agent tool result payload.
type Outcome struct {
	// Refused is true when the spawn was refused due to depth (no child
	// ran).
	Refused       bool
	RefusalReason string

	// Failed is true when the child could not run or produced an error.
	Failed bool
	Error  string

	AgentID string
	Role    Role
	// Summary is the child's final text, summarised if it exceeded
	// SummarizeThreshold.
	Summary string
}

// Config configures a Spawner bound to one running agent instance.
type Config struct {
	// ParentName is the owning agent's display name.
	ParentName string
	// ParentAgentID is the owning agent instance's ID.
	ParentAgentID string
	// Depth is the owning agent's own spawn depth (0 for a top-level agent).
	Depth int
	// MaxDepth caps recursive spawning. Defaults to DefaultMaxDepth.
	MaxDepth int
	// WorkspaceRoot is passed through to every child.
	WorkspaceRoot string
	// Roles overrides the built-in role table. Nil uses DefaultRoles.
	Roles map[Role]RoleConfig
	// Summarizer is invoked at the fast tier to summarise long child
	// output (spec §4.10 step 4). Optional: nil falls back to truncation.
	Summarizer llm.Provider
	// RunChild constructs and runs the child agent.
	RunChild RunChildFunc
	// OnChunk receives forwarded sub-agent chunks. Optional.
	OnChunk func(Chunk)
	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger
	// NewAgentID mints a fresh child agent ID. Defaults to a per-Spawner
	// counter ("{ParentAgentID}/sub-1", "/sub-2", ...), which is neither
	// globally unique nor synchronised for concurrent spawns.
	NewAgentID func() string
}

// Spawner implements the spawn_agent tool for one running agent instance.
type Spawner struct {
	cfg Config
}

// New builds a Spawner bound to cfg.
func New(cfg Config) *Spawner {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Roles == nil {
		cfg.Roles = DefaultRoles
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NoopLogger{}
	}
	if cfg.OnChunk == nil {
		cfg.OnChunk = func(Chunk) {}
	}
	if cfg.NewAgentID == nil {
		n := 0
		cfg.NewAgentID = func() string {
			n++
			return fmt.Sprintf("%s/sub-%d", cfg.ParentAgentID, n)
		}
	}
	return &Spawner{cfg: cfg}
}

const spawnAgentSchemaJSON = `{
	"type": "object",
	"properties": {
		"task": {"type": "string"},
		"role": {"type": "string"},
		"context": {"type": "string"}
	},
	"required": ["task"]
}`

// Tool returns the spawn_agent tool.Spec bound to this Spawner. It is not
// marked Independent: a spawn keeps its own tool call open until the
// child completes, and running two spawns concurrently would interleave
// their forwarded chunks confusingly.
func (s *Spawner) Tool() (tool.Spec, error) {
	schema, err := tool.Compile("spawn_agent.schema.json", []byte(spawnAgentSchemaJSON))
	if err != nil {
		return tool.Spec{}, fmt.Errorf("compile spawn_agent schema: %w", err)
	}
	return tool.Spec{
		Name:        "spawn_agent",
		Description: "Spawn a specialised sub-agent to work on a sub-task, optionally providing it extra context. Returns a summary of the sub-agent's result.",
		Schema:      schema,
		Independent: false,
		Execute:     s.execute,
	}, nil
}

func (s *Spawner) execute(ctx context.Context, input map[string]any, _ *tool.Context) tool.Result {
	task, _ := input["task"].(string)
	roleStr, _ := input["role"].(string)
	taskContext, _ := input["context"].(string)
	if roleStr == "" {
		roleStr = string(RoleGeneric)
	}
	role := Role(roleStr)

	if s.cfg.Depth >= s.cfg.MaxDepth {
		return tool.Ok(Outcome{
			Refused:       true,
			RefusalReason: "maximum sub-agent spawn depth reached; complete this task directly instead of spawning a sub-agent",
		})
	}

	roleCfg := resolveRole(s.cfg.Roles, role)
	childDepth := s.cfg.Depth + 1
	agentID := s.cfg.NewAgentID()

	req := ChildRequest{
		Name:          s.cfg.ParentName + "/" + string(role),
		AgentID:       agentID,
		Role:          role,
		Instructions:  roleCfg.Instructions,
		WorkspaceRoot: s.cfg.WorkspaceRoot,
		Task:          task,
		Context:       taskContext,
		MaxSteps:      ChildMaxSteps,
		Depth:         childDepth,
		AllowSpawn:    childDepth < s.cfg.MaxDepth,
	}

	handle, err := s.cfg.RunChild(ctx, req)
	if err != nil {
		s.cfg.OnChunk(Chunk{AgentID: agentID, Role: role, Status: StatusComplete})
		return tool.Ok(Outcome{Failed: true, Error: err.Error(), AgentID: agentID, Role: role})
	}

	for ev := range handle.Events() {
		if ev.Type == toolloop.EventTextDelta && ev.TextDelta != "" {
			s.cfg.OnChunk(Chunk{AgentID: agentID, Role: role, Text: ev.TextDelta, Status: StatusStreaming})
		}
	}

	finalText, err := handle.Text(ctx)
	s.cfg.OnChunk(Chunk{AgentID: agentID, Role: role, Status: StatusComplete})
	if err != nil {
		return tool.Ok(Outcome{Failed: true, Error: err.Error(), AgentID: agentID, Role: role})
	}

	summary := s.summarize(ctx, role, task, finalText)
	return tool.Ok(Outcome{AgentID: agentID, Role: role, Summary: summary})
}

// summarize implements spec §4.10 step 4: verbatim under the threshold,
// otherwise a fast-tier LLM summary, falling back to truncation on
// summarisation failure.
func (s *Spawner) summarize(ctx context.Context, role Role, task, finalText string) string {
	if len(finalText) <= SummarizeThreshold {
		return finalText
	}
	if s.cfg.Summarizer == nil {
		return truncate(finalText)
	}

	prompt := fmt.Sprintf(
		"Summarise the following %s sub-agent's output for the original task %q in a few sentences, preserving any concrete results, file paths, or decisions:\n\n%s",
		role, task, finalText)
	resp, err := s.cfg.Summarizer.Generate(ctx, llm.Request{
		Tier:     llm.TierFast,
		Messages: []llm.Message{{Role: llm.RoleUser, Text: prompt}},
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		s.cfg.Logger.Warn(ctx, "sub-agent summarisation failed, falling back to truncation", "error", err)
		return truncate(finalText)
	}
	return resp.Text
}

func truncate(text string) string {
	if len(text) <= SummarizeThreshold {
		return text
	}
	return text[:SummarizeThreshold] + TruncationMarker
}
