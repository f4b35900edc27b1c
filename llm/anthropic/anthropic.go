// Package anthropic provides an llm.Provider implementation backed by the
// Anthropic Claude Messages API, using github.com/anthropics/anthropic-sdk-go.
// It is grounded on the teacher's own Anthropic model-client adapter,
// narrowed to the Messages subset the tool loop needs.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentloom/agentcore/llm"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake instead of a live API client.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the adapter's model resolution per tier.
type Options struct {
	// FastModel is the model identifier used for llm.TierFast.
	FastModel string
	// StandardModel is the model identifier used for llm.TierStandard and
	// as the fallback when Tier is unset.
	StandardModel string
	// MaxTokens caps completion length when a Request does not specify one.
	MaxTokens int
}

// Client implements llm.Provider on top of Anthropic Claude Messages.
type Client struct {
	msg      MessagesClient
	fast     string
	standard string
	maxTok   int
}

var _ llm.Provider = (*Client)(nil)

// New builds an Anthropic-backed provider.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.StandardModel == "" {
		return nil, errors.New("standard model identifier is required")
	}
	return &Client{msg: msg, fast: opts.FastModel, standard: opts.StandardModel, maxTok: opts.MaxTokens}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP
// client, authenticated with apiKey.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return llm.Response{}, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateResponse(msg), nil
}

// Stream implements llm.Provider. The Anthropic adapter does not currently
// implement true server-sent-event streaming; it issues a single Generate
// call and replays the result as one text chunk, one chunk per tool call,
// and a terminal stop chunk, so callers relying only on the llm.Provider
// contract still work.
func (c *Client) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk, 2)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		resp, err := c.Generate(ctx, req)
		if err != nil {
			errs <- err
			return
		}
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

func (c *Client) resolveModelID(tier llm.Tier) string {
	if tier == llm.TierFast && c.fast != "" {
		return c.fast
	}
	return c.standard
}

func (c *Client) prepareRequest(req llm.Request) (*sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(c.resolveModelID(req.Tier)),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	return &params, nil
}

func encodeMessages(msgs []llm.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			blocks := []sdk.ContentBlockParamUnion{}
			if m.Text != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Text))
			}
			for _, tr := range m.ToolResults {
				content, err := toolResultContent(tr.Content)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, sdk.NewToolResultBlock(tr.ToolCallID, content, tr.IsError))
			}
			out = append(out, sdk.NewUserMessage(blocks...))
		case llm.RoleAssistant:
			blocks := []sdk.ContentBlockParamUnion{}
			if m.Text != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Payload, tc.Name))
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return out, nil
}

func toolResultContent(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

func encodeTools(defs []llm.ToolDefinition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{
			Properties: d.InputSchema,
		}, d.Name))
	}
	return out
}

func translateResponse(msg *sdk.Message) llm.Response {
	resp := llm.Response{
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		StopReason: string(msg.StopReason),
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "thinking":
			resp.Reasoning += block.Thinking
		case "tool_use":
			var payload map[string]any
			_ = json.Unmarshal(block.Input, &payload)
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:      block.ID,
				Name:    block.Name,
				Payload: payload,
			})
		}
	}
	return resp
}
