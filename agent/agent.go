// Package agent implements the Public Agent Factory (spec §3/§6): it
// wires the System Prompt Builder, Memory Context Loader, Reflection
// Composer, Guardrail Runner, Durable Step Wrapper, and Sub-Agent Spawner
// around the Tool-Loop Engine, and exposes the resulting Agent's single
// entry point, Stream.
//
// createAgent(config) from the spec becomes New(Config); the spec's
// async init() becomes a lazy, idempotent first-Stream initialisation
// guarded by sync.Once, matching the "initialised lazily at most once on
// first stream(), with subsequent calls awaiting the same initialisation"
// lifecycle.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/guardrail"
	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/memory"
	"github.com/agentloom/agentcore/reflection"
	"github.com/agentloom/agentcore/subagent"
	"github.com/agentloom/agentcore/sysprompt"
	"github.com/agentloom/agentcore/telemetry"
	"github.com/agentloom/agentcore/tool"
	"github.com/agentloom/agentcore/toolloop"
)

// DefaultMaxSpawnDepth mirrors subagent.DefaultMaxDepth; surfaced here so
// callers configuring a root agent don't need to import subagent directly.
const DefaultMaxSpawnDepth = subagent.DefaultMaxDepth

// Config is the immutable specification for a single agent instance
// (spec §3 AgentConfig). New never mutates it.
type Config struct {
	// Name is the agent's display name; unique within its parent and used
	// as the state-directory path segment.
	Name string
	// Instructions are natural-language instructions folded into the
	// system prompt.
	Instructions string
	// WorkspaceRoot is the absolute path tools scope file/shell operations
	// to.
	WorkspaceRoot string
	// StateRoot is the user-state root the agent's persistent directory is
	// derived under: "{StateRoot}/agents/{sanitised-name}/".
	StateRoot string

	// Provider is the optional model handle. Nil means the caller has not
	// resolved one; New returns an error in that case, since agentcore
	// does not guess which provider to construct.
	Provider llm.Provider
	// Tier selects which model family Provider resolves requests to.
	Tier llm.Tier

	// MaxSteps caps the tool loop's step budget. Zero defaults to
	// toolloop.DefaultMaxSteps for a root agent (Depth == 0) or
	// subagent.ChildMaxSteps for a spawned one.
	MaxSteps int
	// UsageLimits bounds cumulative token usage across a stream call.
	UsageLimits toolloop.UsageLimits

	// Tools is additional, caller-supplied capabilities keyed by name.
	// The factory adds spawn_agent automatically when AllowSpawn is true.
	Tools map[string]tool.Spec

	// Memory, if non-nil, is queried at init for a persistent-context
	// block and user preferences (spec §4.7).
	Memory memory.Store
	// Preferences are explicit, caller-supplied preferences; they win over
	// anything extracted from Memory (see memory.Merge).
	Preferences memory.Preferences

	// Guardrails filters the tool loop's final text (spec §4.6). Optional.
	Guardrails *guardrail.Runner

	// Reflection configures the self-reflection fragment injected into
	// the system prompt across steps (spec §4.5). The zero value disables
	// it (reflection.None).
	Reflection reflection.Config

	// Durable, if non-nil, is probed once per Agent for reachability and
	// used to wrap tool executions as checkpointed steps (spec §4.3/4.4).
	Durable durable.Engine

	// Skills is the auto-discovered skill set folded into the system
	// prompt. Optional.
	Skills []sysprompt.Skill
	// SystemContext seeds the environment/context block (date, platform,
	// user, workspace map). Preferences/HasPreferences are overwritten at
	// init with the resolved Memory+explicit merge.
	SystemContext sysprompt.Context

	// Depth is this agent's spawn depth; 0 for a root agent.
	Depth int
	// MaxSpawnDepth caps recursive sub-agent spawning. Zero defaults to
	// DefaultMaxSpawnDepth.
	MaxSpawnDepth int
	// AllowSpawn enables the spawn_agent tool. Defaults to true for a
	// root agent (Depth == 0); spawned children get it from
	// subagent.ChildRequest.AllowSpawn.
	AllowSpawn *bool
	// ParentAgentID is set when this Config describes a spawned child.
	ParentAgentID string

	// Summarizer is the fast-tier provider used to summarise long
	// sub-agent output (spec §4.10 step 4). Defaults to Provider.
	Summarizer llm.Provider
	// OnSubAgentChunk receives forwarded sub-agent stream chunks from any
	// spawn_agent invocation. Optional.
	OnSubAgentChunk func(subagent.Chunk)

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger
}

func (c Config) allowSpawn() bool {
	if c.AllowSpawn != nil {
		return *c.AllowSpawn
	}
	return c.Depth == 0
}

func (c Config) maxSteps() int {
	if c.MaxSteps > 0 {
		return c.MaxSteps
	}
	if c.Depth == 0 {
		return toolloop.DefaultMaxSteps
	}
	return subagent.ChildMaxSteps
}

// Agent is a live agent instance (spec §3 Agent). Each Agent owns its
// tool set, system prompt, and state directory; concurrent Agents never
// write to each other's state (spec §5 "No shared mutation across
// agents").
type Agent struct {
	cfg      Config
	id       string
	tools    map[string]tool.Spec
	stateDir string
	detector *durable.Detector

	initOnce sync.Once

	mu           sync.RWMutex
	systemPrompt string
}

// New validates cfg, assembles the tool set (including spawn_agent when
// spawning is allowed), derives the state directory, and builds the base
// system prompt. It does not perform any I/O: memory/durability/telemetry
// resolution happens lazily on the first Stream call.
func New(cfg Config) (*Agent, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("agent: Name is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: Provider is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NoopLogger{}
	}
	if cfg.MaxSpawnDepth <= 0 {
		cfg.MaxSpawnDepth = DefaultMaxSpawnDepth
	}
	if cfg.Summarizer == nil {
		cfg.Summarizer = cfg.Provider
	}

	a := &Agent{
		cfg:      cfg,
		id:       uuid.NewString(),
		stateDir: filepath.Join(cfg.StateRoot, "agents", sysprompt.SanitiseName(cfg.Name)),
		detector: durable.NewDetector(cfg.Durable, cfg.Logger),
	}

	tools := make(map[string]tool.Spec, len(cfg.Tools)+1)
	for name, spec := range cfg.Tools {
		tools[name] = spec
	}
	if cfg.allowSpawn() {
		spawner := subagent.New(subagent.Config{
			ParentName:    cfg.Name,
			ParentAgentID: a.id,
			Depth:         cfg.Depth,
			MaxDepth:      cfg.MaxSpawnDepth,
			WorkspaceRoot: cfg.WorkspaceRoot,
			Summarizer:    cfg.Summarizer,
			RunChild:      a.runChild,
			OnChunk:       cfg.OnSubAgentChunk,
			Logger:        cfg.Logger,
			NewAgentID:    uuid.NewString,
		})
		spawnTool, err := spawner.Tool()
		if err != nil {
			return nil, fmt.Errorf("agent: build spawn_agent tool: %w", err)
		}
		tools[spawnTool.Name] = spawnTool
	}
	a.tools = tools

	a.systemPrompt = sysprompt.Build(sysprompt.Input{
		AgentName:     cfg.Name,
		Instructions:  cfg.Instructions,
		Skills:        cfg.Skills,
		SystemContext: cfg.SystemContext,
	})

	return a, nil
}

// ID returns the agent instance's identifier.
func (a *Agent) ID() string { return a.id }

// StateDir returns the agent's persistent state directory.
func (a *Agent) StateDir() string { return a.stateDir }

// GetSystemPrompt returns the agent's current system prompt: the base
// prompt, plus the memory block prepended at init if one was resolved.
func (a *Agent) GetSystemPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.systemPrompt
}

// GetToolNames returns the names of every tool available to this agent,
// in no particular order.
func (a *Agent) GetToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	return names
}

// Tool returns the named tool.Spec from this agent's assembled tool set.
func (a *Agent) Tool(name string) (tool.Spec, bool) {
	spec, ok := a.tools[name]
	return spec, ok
}

// init performs the agent's one-time async initialisation: durable
// runtime detection and memory-derived context. It is idempotent;
// concurrent callers (including concurrent Stream calls) all observe the
// same result once the first call completes (spec §3 Agent lifecycle). A
// failed memory load is logged and otherwise ignored, per spec §4.7: it
// never becomes a hard failure of the agent.
func (a *Agent) init(ctx context.Context) {
	a.initOnce.Do(func() {
		a.detector.Detect(ctx)

		if a.cfg.Memory == nil {
			return
		}
		loaded, err := memory.Load(ctx, a.cfg.Memory, a.cfg.Instructions, a.cfg.Preferences, 5)
		if err != nil {
			a.cfg.Logger.Warn(ctx, "memory context load failed, continuing without it", "error", err)
			return
		}

		a.mu.Lock()
		sc := a.cfg.SystemContext
		sc.Preferences = loaded.Preferences
		sc.HasPreferences = loaded.Preferences != (memory.Preferences{})
		a.systemPrompt = sysprompt.Build(sysprompt.Input{
			AgentName:     a.cfg.Name,
			Instructions:  a.cfg.Instructions,
			Skills:        a.cfg.Skills,
			SystemContext: sc,
			MemoryBlock:   loaded.Block,
		})
		a.mu.Unlock()
	})
}

// Stream starts a streamed tool-loop run against prompt, returning
// immediately with a Handle (spec §6 stream result). The agent's lazy
// initialisation runs synchronously before the loop starts.
func (a *Agent) Stream(ctx context.Context, prompt string) *toolloop.Handle {
	a.init(ctx)

	var prepareStep toolloop.PrepareStepFunc
	if a.cfg.Reflection.Strategy != "" && a.cfg.Reflection.Strategy != reflection.None {
		refCfg := a.cfg.Reflection
		prepareStep = func(_ context.Context, _ []llm.Message, stepIndex int, basePrompt string) string {
			return reflection.Compose(refCfg, stepIndex, basePrompt)
		}
	}

	return toolloop.Run(ctx, toolloop.Config{
		Prompt:        prompt,
		SystemPrompt:  a.GetSystemPrompt(),
		Tools:         a.tools,
		Provider:      a.cfg.Provider,
		Tier:          a.cfg.Tier,
		MaxSteps:      a.cfg.maxSteps(),
		UsageLimits:   a.cfg.UsageLimits,
		PrepareStep:   prepareStep,
		Guardrails:    a.cfg.Guardrails,
		Durable:       a.detector.Engine(ctx),
		WorkspaceRoot: a.cfg.WorkspaceRoot,
		AgentID:       a.id,
		ParentAgentID: a.cfg.ParentAgentID,
		Logger:        a.cfg.Logger,
	})
}

// RunToCompletion drains Stream's event channel and returns the final
// text, matching template.RunAgentFunc and subagent's need for a
// "run to completion and return final text" primitive.
func (a *Agent) RunToCompletion(ctx context.Context, prompt string) (string, error) {
	h := a.Stream(ctx, prompt)
	for range h.Events() {
	}
	return h.Text(ctx)
}

// runChild implements subagent.RunChildFunc: it constructs a child Agent
// from req and starts it, closing the cyclic agent/tool reference the
// spec calls for (spec §5 "Cyclic agent/tool reference") via this
// function-valued field rather than a literal self-reference.
func (a *Agent) runChild(ctx context.Context, req subagent.ChildRequest) (*toolloop.Handle, error) {
	allowSpawn := req.AllowSpawn
	childCfg := a.cfg
	childCfg.Name = req.Name
	childCfg.Instructions = req.Instructions
	childCfg.WorkspaceRoot = req.WorkspaceRoot
	childCfg.MaxSteps = req.MaxSteps
	childCfg.Depth = req.Depth
	childCfg.AllowSpawn = &allowSpawn
	childCfg.ParentAgentID = a.id
	childCfg.Skills = nil
	childCfg.SystemContext = sysprompt.Context{WorkspaceRoot: req.WorkspaceRoot}

	child, err := New(childCfg)
	if err != nil {
		return nil, fmt.Errorf("agent: construct child %q: %w", req.Name, err)
	}

	prompt := req.Task
	if req.Context != "" {
		prompt = fmt.Sprintf("%s\n\nAdditional context:\n%s", req.Task, req.Context)
	}
	return child.Stream(ctx, prompt), nil
}
