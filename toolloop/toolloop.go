// Package toolloop implements the Tool-Loop Engine (spec §4.9): the core
// request/response cycle that drives a model through repeated
// generate-then-call-tools steps until a stop condition holds, emitting a
// typed event stream along the way.
//
// There is no generator/yield construct in Go, so the "async iterable of
// events" from the spec is realised as a channel owned by a Handle, with
// the final text and cumulative usage exposed as blocking accessor methods
// rather than promises (spec §9 DESIGN NOTES: typed event channels instead
// of generators).
package toolloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/guardrail"
	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/telemetry"
	"github.com/agentloom/agentcore/tool"
	"github.com/agentloom/agentcore/toolerrors"
)

// EventType discriminates the entries on a Handle's event stream.
type EventType string

const (
	EventSessionStart   EventType = "session:start"
	EventStepStart      EventType = "step:start"
	EventTextDelta      EventType = "text:delta"
	EventReasoningDelta EventType = "reasoning:delta"
	EventToolCall       EventType = "tool:call"
	EventToolResult     EventType = "tool:result"
	EventStepFinish     EventType = "step:finish"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// CompleteInfo carries the terminal payload of an EventComplete event.
type CompleteInfo struct {
	Text       string
	Completed  bool
	NeedsInput bool
	StepsUsed  int
	ToolsUsed  []string
}

// Event is a single entry on a Handle's event stream (spec §4.9 event
// table). Only the fields relevant to Type are populated.
type Event struct {
	Type           EventType
	SessionID      string
	StepIndex      int
	TextDelta      string
	ReasoningDelta string
	ToolCallID     string
	ToolName       string
	Args           map[string]any
	Result         any
	DurationMs     int64
	Message        string
	Code           string
	Complete       CompleteInfo
}

// UsageLimits bounds cumulative token usage across a run (spec §4.9 stop
// condition (b)). A zero field means "no limit" for that dimension.
type UsageLimits struct {
	MaxInputTokens  int
	MaxOutputTokens int
	MaxTotalTokens  int
}

func (u UsageLimits) exceeded(usage llm.Usage) bool {
	if u.MaxInputTokens > 0 && usage.InputTokens > u.MaxInputTokens {
		return true
	}
	if u.MaxOutputTokens > 0 && usage.OutputTokens > u.MaxOutputTokens {
		return true
	}
	if u.MaxTotalTokens > 0 && usage.TotalTokens > u.MaxTotalTokens {
		return true
	}
	return false
}

// DefaultMaxSteps is the default step budget for a top-level agent (spec §6).
const DefaultMaxSteps = 25

// PrepareStepFunc augments the base system prompt for the given step
// (spec §4.9 step 2), typically to inject a reflection fragment. stepsSoFar
// is the conversation accumulated before this step's model call.
type PrepareStepFunc func(ctx context.Context, stepsSoFar []llm.Message, stepIndex int, basePrompt string) string

// Config configures a single tool-loop run.
type Config struct {
	// SessionID identifies this run on the emitted event stream. A random
	// value is generated if empty.
	SessionID string
	// Prompt is the initial user prompt.
	Prompt string
	// SystemPrompt is the assembled base system prompt (spec §4.8).
	SystemPrompt string
	// Tools is the set of tools available to the model, keyed by name.
	Tools map[string]tool.Spec
	// Provider is the model handle invoked each step.
	Provider llm.Provider
	// Tier selects which model family Provider resolves requests to.
	Tier llm.Tier
	// MaxSteps caps the number of model-call+tool-calls cycles. Defaults
	// to DefaultMaxSteps.
	MaxSteps int
	// MaxTokens bounds a single model call's output, passed through to
	// the provider request.
	MaxTokens int
	// UsageLimits bounds cumulative usage across the run.
	UsageLimits UsageLimits
	// PrepareStep augments the system prompt per step. Optional.
	PrepareStep PrepareStepFunc
	// Guardrails filters the final text before delivery (spec §4.6).
	// Optional; a nil Runner passes text through unchanged.
	Guardrails *guardrail.Runner
	// Durable, if non-nil, wraps each tool execution as a checkpointed
	// step (spec §4.3). Nil means no durable runtime: tools run directly.
	Durable durable.Engine
	// WorkspaceRoot is handed to every tool.Context.
	WorkspaceRoot string
	// AgentID identifies the agent instance executing this run.
	AgentID string
	// ParentAgentID is set when this run belongs to a spawned sub-agent.
	ParentAgentID string
	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger telemetry.Logger
}

// Handle is the streaming result of a Run call (spec §6 stream result):
// an event channel plus blocking accessors for the final text and
// cumulative usage, the idiomatic-Go equivalent of the spec's async
// iterable plus awaitables.
type Handle struct {
	events chan Event
	done   chan struct{}

	text  string
	usage llm.Usage
	err   error
}

// Events returns the channel events are emitted on. It is closed after the
// complete event has been sent.
func (h *Handle) Events() <-chan Event { return h.events }

// Text blocks until the run finishes (or ctx is cancelled) and returns the
// final, guardrail-filtered assistant text.
func (h *Handle) Text(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.text, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Usage blocks until the run finishes (or ctx is cancelled) and returns
// cumulative token usage across every step.
func (h *Handle) Usage(ctx context.Context) (llm.Usage, error) {
	select {
	case <-h.done:
		return h.usage, h.err
	case <-ctx.Done():
		return llm.Usage{}, ctx.Err()
	}
}

// Run starts a tool-loop session and returns immediately with a Handle;
// the loop itself executes on a background goroutine. ctx governs
// cancellation (spec §5): cancelling ctx finishes in-flight tool calls,
// then emits an error event with code "cancelled" followed by a terminal
// complete event with completed: false.
func Run(ctx context.Context, cfg Config) *Handle {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NoopLogger{}
	}
	if cfg.SessionID == "" {
		cfg.SessionID = newSessionID()
	}

	h := &Handle{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.events)
		text, usage, err := runLoop(ctx, cfg, h.events)
		h.text, h.usage, h.err = text, usage, err
		close(h.done)
	}()

	return h
}

func newSessionID() string {
	return fmt.Sprintf("sess-%d", time.Now().UnixNano())
}

// runLoop is the algorithm from spec §4.9. It emits events on out and
// returns the final guardrail-filtered text plus cumulative usage.
func runLoop(ctx context.Context, cfg Config, out chan<- Event) (string, llm.Usage, error) {
	emit := func(ev Event) {
		ev.SessionID = cfg.SessionID
		// Prefer a buffered send so events emitted after cancellation
		// (the cancelled error and the terminal complete) are not dropped.
		select {
		case out <- ev:
			return
		default:
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	emit(Event{Type: EventSessionStart})

	toolDefs := make([]llm.ToolDefinition, 0, len(cfg.Tools))
	for _, spec := range cfg.Tools {
		toolDefs = append(toolDefs, llm.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schemaDocument(spec.Schema),
		})
	}

	var (
		conversation []llm.Message
		cumUsage     llm.Usage
		lastText     string
		toolsUsed    = map[string]struct{}{}
		stepIndex    = 0
	)
	conversation = append(conversation, llm.Message{Role: llm.RoleUser, Text: cfg.Prompt})

	for {
		if ctx.Err() != nil {
			emit(Event{Type: EventError, StepIndex: stepIndex, Message: ctx.Err().Error(), Code: string(toolerrors.KindCancelled)})
			return finish(emit, lastText, cumUsage, stepIndex, toolsUsed, false, false, cfg)
		}

		emit(Event{Type: EventStepStart, StepIndex: stepIndex})
		stepStart := time.Now()

		system := cfg.SystemPrompt
		if cfg.PrepareStep != nil {
			system = cfg.PrepareStep(ctx, conversation, stepIndex, cfg.SystemPrompt)
		}

		resp, stepUsage, err := generateStep(ctx, cfg, system, conversation, toolDefs, emit, stepIndex)
		if err != nil {
			if ctx.Err() != nil {
				emit(Event{Type: EventError, StepIndex: stepIndex, Message: ctx.Err().Error(), Code: string(toolerrors.KindCancelled)})
			} else {
				emit(Event{Type: EventError, StepIndex: stepIndex, Message: err.Error(), Code: errorCode(err)})
			}
			return finish(emit, lastText, cumUsage, stepIndex, toolsUsed, false, false, cfg)
		}
		cumUsage = addUsage(cumUsage, stepUsage)
		if resp.Text != "" {
			lastText = resp.Text
		}

		// Stop condition (b): usage limit, evaluated after each model call.
		if cfg.UsageLimits.exceeded(cumUsage) {
			emit(Event{Type: EventError, StepIndex: stepIndex, Message: "usage limit exceeded", Code: string(toolerrors.KindUsageLimitExceeded)})
			return finish(emit, lastText, cumUsage, stepIndex, toolsUsed, false, false, cfg)
		}

		// Stop condition (c): terminal text with no tool calls.
		if len(resp.ToolCalls) == 0 {
			assistantMsg := llm.Message{Role: llm.RoleAssistant, Text: resp.Text}
			conversation = append(conversation, assistantMsg)
			emit(Event{Type: EventStepFinish, StepIndex: stepIndex, DurationMs: time.Since(stepStart).Milliseconds()})
			return finish(emit, resp.Text, cumUsage, stepIndex+1, toolsUsed, true, false, cfg)
		}

		toolResults := executeToolCalls(ctx, cfg, resp.ToolCalls, stepIndex, emit, toolsUsed)

		conversation = append(conversation, llm.Message{Role: llm.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls})
		conversation = append(conversation, llm.Message{Role: llm.RoleUser, ToolResults: toolResults})

		emit(Event{Type: EventStepFinish, StepIndex: stepIndex, DurationMs: time.Since(stepStart).Milliseconds()})

		if ctx.Err() != nil {
			emit(Event{Type: EventError, StepIndex: stepIndex, Message: ctx.Err().Error(), Code: string(toolerrors.KindCancelled)})
			return finish(emit, lastText, cumUsage, stepIndex+1, toolsUsed, false, false, cfg)
		}

		stepIndex++

		// Stop condition (a): step count reached maxSteps while tool calls
		// are still pending.
		if stepIndex >= cfg.MaxSteps {
			text := lastText
			if text == "" {
				text = "tool loop stopped: maximum step count reached before a terminal response"
			}
			return finish(emit, text, cumUsage, stepIndex, toolsUsed, false, false, cfg)
		}
	}
}

// generateStep invokes the model for one step, forwarding streamed deltas
// as events and accumulating the full response.
func generateStep(ctx context.Context, cfg Config, system string, conversation []llm.Message, toolDefs []llm.ToolDefinition, emit func(Event), stepIndex int) (llm.Response, llm.Usage, error) {
	req := llm.Request{
		Tier:      cfg.Tier,
		System:    system,
		Messages:  conversation,
		Tools:     toolDefs,
		MaxTokens: cfg.MaxTokens,
	}

	chunks, errs := cfg.Provider.Stream(ctx, req)

	var (
		textBuilder      strings.Builder
		reasoningBuilder strings.Builder
		toolCalls        []llm.ToolCall
		usage            llm.Usage
		stopReason       string
	)
	for ch := range chunks {
		switch ch.Type {
		case llm.ChunkText:
			textBuilder.WriteString(ch.TextDelta)
			emit(Event{Type: EventTextDelta, StepIndex: stepIndex, TextDelta: ch.TextDelta})
		case llm.ChunkReasoning:
			reasoningBuilder.WriteString(ch.TextDelta)
			emit(Event{Type: EventReasoningDelta, StepIndex: stepIndex, ReasoningDelta: ch.TextDelta})
		case llm.ChunkToolCall:
			if ch.ToolCall != nil {
				toolCalls = append(toolCalls, *ch.ToolCall)
			}
		case llm.ChunkStop:
			if ch.Usage != nil {
				usage = *ch.Usage
			}
			stopReason = ch.StopReason
		}
	}
	if err := <-errs; err != nil {
		return llm.Response{}, llm.Usage{}, toolerrors.Wrap(toolerrors.KindToolExecution, "model invocation failed", err)
	}

	return llm.Response{
		Text:       textBuilder.String(),
		Reasoning:  reasoningBuilder.String(),
		ToolCalls:  toolCalls,
		Usage:      usage,
		StopReason: stopReason,
	}, usage, nil
}

// executeToolCalls resolves and runs every tool call from a single step,
// in issue-order for the purpose of conversation assembly. Calls whose
// tool is marked Independent run concurrently with other independent
// calls in the same step (spec §4.9 step 3); their results are still
// slotted back into issue-order before being returned (spec §5 ordering
// guarantee (b)).
func executeToolCalls(ctx context.Context, cfg Config, calls []llm.ToolCall, stepIndex int, emit func(Event), toolsUsed map[string]struct{}) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))

	var mu sync.Mutex
	runOne := func(i int, call llm.ToolCall) {
		mu.Lock()
		toolsUsed[call.Name] = struct{}{}
		mu.Unlock()
		emit(Event{Type: EventToolCall, StepIndex: stepIndex, ToolCallID: call.ID, ToolName: call.Name, Args: call.Payload})

		started := time.Now()
		result := runToolCall(ctx, cfg, call, stepIndex)
		duration := time.Since(started)

		mu.Lock()
		results[i] = result
		mu.Unlock()

		emit(Event{
			Type:       EventToolResult,
			StepIndex:  stepIndex,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Result:     result.Content,
			DurationMs: duration.Milliseconds(),
		})
	}

	isIndependent := func(call llm.ToolCall) bool {
		spec, ok := cfg.Tools[call.Name]
		return ok && spec.Independent
	}

	i := 0
	for i < len(calls) {
		if ctx.Err() != nil {
			results[i] = llm.ToolResult{ToolCallID: calls[i].ID, Content: ctx.Err().Error(), IsError: true}
			i++
			continue
		}
		if !isIndependent(calls[i]) {
			runOne(i, calls[i])
			i++
			continue
		}
		// Run the contiguous run of independent calls starting at i
		// concurrently; their results are still slotted back in
		// issue-order (spec §5 ordering guarantee (b)).
		var g errgroup.Group
		j := i
		for j < len(calls) && isIndependent(calls[j]) {
			idx, call := j, calls[j]
			g.Go(func() error {
				runOne(idx, call)
				return nil
			})
			j++
		}
		_ = g.Wait()
		i = j
	}

	return results
}

// runToolCall resolves a single tool call against cfg.Tools, validates its
// input, and invokes the (possibly durable-wrapped) executor.
func runToolCall(ctx context.Context, cfg Config, call llm.ToolCall, stepIndex int) llm.ToolResult {
	spec, ok := cfg.Tools[call.Name]
	if !ok {
		err := toolerrors.Newf(toolerrors.KindUnknownTool, "unknown tool %q", call.Name)
		return llm.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}

	if err := spec.Schema.Validate(call.Payload); err != nil {
		verr := toolerrors.Wrap(toolerrors.KindValidation, "input validation failed for tool "+call.Name, err)
		return llm.ToolResult{ToolCallID: call.ID, Content: verr.Error(), IsError: true}
	}

	tc := &tool.Context{
		AgentID:       cfg.AgentID,
		StepIndex:     stepIndex,
		ParentAgentID: cfg.ParentAgentID,
		WorkspaceRoot: cfg.WorkspaceRoot,
	}

	exec := func(ctx context.Context) (any, error) {
		res := spec.Execute(ctx, call.Payload, tc)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value, nil
	}

	stepCfg := durable.StepConfig{
		Name:        durable.ToolStepName(spec.Name),
		Independent: spec.Independent,
	}
	value, err := durable.RunStep(ctx, cfg.Durable, stepCfg, exec)
	if err != nil {
		return llm.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: value}
}

// finish applies the output guardrail pipeline to text and emits the
// terminal complete event (spec §4.9 step 6, §4.6).
func finish(emit func(Event), text string, usage llm.Usage, stepsUsed int, toolsUsed map[string]struct{}, completed bool, needsInput bool, cfg Config) (string, llm.Usage, error) {
	final := text
	if cfg.Guardrails != nil {
		res, err := cfg.Guardrails.Run(context.Background(), text, guardrail.PhaseOutput)
		if err != nil {
			cfg.Logger.Warn(context.Background(), "guardrail runner failed, delivering unfiltered text", "error", err)
		} else {
			final = res.Text
		}
	}

	names := make([]string, 0, len(toolsUsed))
	for name := range toolsUsed {
		names = append(names, name)
	}

	emit(Event{
		Type: EventComplete,
		Complete: CompleteInfo{
			Text:       final,
			Completed:  completed,
			NeedsInput: needsInput,
			StepsUsed:  stepsUsed,
			ToolsUsed:  names,
		},
	})
	return final, usage, nil
}

func addUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		InputTokens:  a.InputTokens + b.InputTokens,
		OutputTokens: a.OutputTokens + b.OutputTokens,
		TotalTokens:  a.TotalTokens + b.TotalTokens,
	}
}

func errorCode(err error) string {
	if kind, ok := toolerrors.KindOf(err); ok {
		return string(kind)
	}
	return string(toolerrors.KindFatal)
}

// schemaDocument extracts the raw JSON Schema document from a tool.Schema
// for inclusion in a model request's tool definitions. A nil Schema
// yields a permissive empty-object schema.
func schemaDocument(s *tool.Schema) any {
	if s == nil {
		return map[string]any{"type": "object"}
	}
	var doc any
	raw := s.Raw()
	if len(raw) == 0 {
		return map[string]any{"type": "object"}
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{"type": "object"}
	}
	return doc
}
