package toolloop_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/agentloom/agentcore/guardrail"
	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/tool"
	"github.com/agentloom/agentcore/toolerrors"
	"github.com/agentloom/agentcore/toolloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays a fixed sequence of llm.Response values, one per
// Stream call, regardless of the request contents.
type fakeProvider struct {
	mu        sync.Mutex
	responses []llm.Response
	calls     int
}

func (f *fakeProvider) Generate(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{}, errors.New("fakeProvider: Generate not used by toolloop")
}

func (f *fakeProvider) Stream(_ context.Context, _ llm.Request) (<-chan llm.Chunk, <-chan error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	chunks := make(chan llm.Chunk, 8)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if idx >= len(f.responses) {
			errs <- errors.New("fakeProvider: exhausted response queue")
			return
		}
		resp := f.responses[idx]
		if resp.Text != "" {
			chunks <- llm.Chunk{Type: llm.ChunkText, TextDelta: resp.Text}
		}
		for _, tc := range resp.ToolCalls {
			tc := tc
			chunks <- llm.Chunk{Type: llm.ChunkToolCall, ToolCall: &tc}
		}
		usage := resp.Usage
		chunks <- llm.Chunk{Type: llm.ChunkStop, StopReason: resp.StopReason, Usage: &usage}
	}()
	return chunks, errs
}

func echoTool(independent bool) tool.Spec {
	return tool.Spec{
		Name:        "echo",
		Description: "echoes its input",
		Independent: independent,
		Execute: func(_ context.Context, input map[string]any, _ *tool.Context) tool.Result {
			return tool.Ok(input["text"])
		},
	}
}

func collectEvents(h *toolloop.Handle) []toolloop.Event {
	var events []toolloop.Event
	for ev := range h.Events() {
		events = append(events, ev)
	}
	return events
}

func lastEvent(events []toolloop.Event) toolloop.Event {
	return events[len(events)-1]
}

func TestRun_TerminalTextNoToolCalls(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{{Text: "final answer"}}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:   "hi",
		Provider: provider,
	})

	events := collectEvents(h)
	text, err := h.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "final answer", text)

	final := lastEvent(events)
	require.Equal(t, toolloop.EventComplete, final.Type)
	assert.True(t, final.Complete.Completed)
	assert.Equal(t, 1, final.Complete.StepsUsed)
	assert.Equal(t, events[0].Type, toolloop.EventSessionStart)
}

func TestRun_ExecutesToolCallThenTerminates(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "echo", Payload: map[string]any{"text": "hello"}}}},
		{Text: "done"},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:   "hi",
		Provider: provider,
		Tools:    map[string]tool.Spec{"echo": echoTool(false)},
	})

	events := collectEvents(h)
	text, err := h.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", text)

	var sawToolCall, sawToolResult bool
	for _, ev := range events {
		switch ev.Type {
		case toolloop.EventToolCall:
			sawToolCall = true
			assert.Equal(t, "echo", ev.ToolName)
		case toolloop.EventToolResult:
			sawToolResult = true
			assert.Equal(t, "hello", ev.Result)
		}
	}
	assert.True(t, sawToolCall)
	assert.True(t, sawToolResult)

	final := lastEvent(events)
	assert.True(t, final.Complete.Completed)
	assert.Equal(t, 2, final.Complete.StepsUsed)
	assert.Contains(t, final.Complete.ToolsUsed, "echo")
}

func TestRun_UnknownToolSynthesizesErrorAndReenters(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "does-not-exist"}}},
		{Text: "recovered"},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:   "hi",
		Provider: provider,
	})

	events := collectEvents(h)
	text, err := h.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	var foundUnknownToolResult bool
	for _, ev := range events {
		if ev.Type == toolloop.EventToolResult {
			if s, ok := ev.Result.(string); ok && strings.Contains(s, string(toolerrors.KindUnknownTool)) {
				foundUnknownToolResult = true
			}
		}
	}
	assert.True(t, foundUnknownToolResult, "expected a tool:result event carrying an unknown-tool error")
}

func TestRun_MaxStepsExceededWithPendingToolCalls(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "echo", Payload: map[string]any{"text": "x"}}}},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:   "hi",
		Provider: provider,
		Tools:    map[string]tool.Spec{"echo": echoTool(false)},
		MaxSteps: 1,
	})

	events := collectEvents(h)
	_, err := h.Text(context.Background())
	require.NoError(t, err)

	final := lastEvent(events)
	require.Equal(t, toolloop.EventComplete, final.Type)
	assert.False(t, final.Complete.Completed)
	assert.Equal(t, 1, final.Complete.StepsUsed)
}

func TestRun_UsageLimitExceeded(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{Text: "final", Usage: llm.Usage{TotalTokens: 1000}},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:      "hi",
		Provider:    provider,
		UsageLimits: toolloop.UsageLimits{MaxTotalTokens: 500},
	})

	events := collectEvents(h)
	_, err := h.Text(context.Background())
	require.NoError(t, err)

	var sawUsageError bool
	for _, ev := range events {
		if ev.Type == toolloop.EventError && ev.Code == string(toolerrors.KindUsageLimitExceeded) {
			sawUsageError = true
		}
	}
	assert.True(t, sawUsageError)

	final := lastEvent(events)
	assert.False(t, final.Complete.Completed)
}

func TestRun_IndependentToolCallsBothExecute(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: "echo", Payload: map[string]any{"text": "a"}},
			{ID: "call-2", Name: "echo", Payload: map[string]any{"text": "b"}},
		}},
		{Text: "done"},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:   "hi",
		Provider: provider,
		Tools:    map[string]tool.Spec{"echo": echoTool(true)},
	})

	events := collectEvents(h)
	_, err := h.Text(context.Background())
	require.NoError(t, err)

	var results []any
	for _, ev := range events {
		if ev.Type == toolloop.EventToolResult {
			results = append(results, ev.Result)
		}
	}
	assert.ElementsMatch(t, []any{"a", "b"}, results)
}

type blockingGuard struct{}

func (blockingGuard) Name() string { return "block-everything" }
func (blockingGuard) Check(context.Context, string, guardrail.CheckInput) (guardrail.Verdict, error) {
	return guardrail.Verdict{Passed: false, Blocked: "policy violation"}, nil
}

func TestRun_AppliesOutputGuardrails(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{{Text: "sensitive content"}}}
	h := toolloop.Run(context.Background(), toolloop.Config{
		Prompt:     "hi",
		Provider:   provider,
		Guardrails: guardrail.NewRunner(guardrail.ModeBlock, blockingGuard{}),
	})

	collectEvents(h)
	text, err := h.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guardrail.PolicyViolationMarker, text)
}

func TestHandle_TextAndUsageBlockUntilComplete(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{Text: "ok", Usage: llm.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}},
	}}
	h := toolloop.Run(context.Background(), toolloop.Config{Prompt: "hi", Provider: provider})

	collectEvents(h)
	usage, err := h.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, usage.TotalTokens)
}
