// Package openai provides an llm.Provider implementation backed by the
// OpenAI Chat Completions API, using github.com/openai/openai-go. It is
// grounded on the teacher's OpenAI model-client adapter, narrowed to the
// Chat Completions subset the tool loop needs and ported to the official
// openai-go SDK's request/response shapes.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentloom/agentcore/llm"
)

// ChatClient captures the subset of openai-go used by the adapter.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter's model resolution per tier.
type Options struct {
	FastModel     string
	StandardModel string
}

// Client implements llm.Provider via OpenAI Chat Completions.
type Client struct {
	chat     ChatClient
	fast     string
	standard string
}

var _ llm.Provider = (*Client)(nil)

// New builds an OpenAI-backed provider.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(opts.StandardModel) == "" {
		return nil, errors.New("standard model identifier is required")
	}
	return &Client{chat: chat, fast: opts.FastModel, standard: opts.StandardModel}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP
// client, authenticated with apiKey.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(oc.Chat.Completions, opts)
}

func (c *Client) resolveModelID(tier llm.Tier) string {
	if tier == llm.TierFast && c.fast != "" {
		return c.fast
	}
	return c.standard
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) == 0 {
		return llm.Response{}, errors.New("messages are required")
	}
	messages := encodeMessages(req)
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return llm.Response{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.resolveModelID(req.Tier)),
		Messages: messages,
		Tools:    tools,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	return translateResponse(resp), nil
}

// ErrStreamingUnsupported is returned by Stream: this adapter does not yet
// implement Chat Completions SSE streaming.
var ErrStreamingUnsupported = errors.New("openai: streaming not supported by this adapter")

// Stream implements llm.Provider by reporting that streaming is
// unsupported; callers should fall back to Generate.
func (c *Client) Stream(context.Context, llm.Request) (<-chan llm.Chunk, <-chan error) {
	errs := make(chan error, 1)
	errs <- ErrStreamingUnsupported
	close(errs)
	chunks := make(chan llm.Chunk)
	close(chunks)
	return chunks, errs
}

func encodeMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, openai.UserMessage(m.Text))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Text))
		}
		for _, tr := range m.ToolResults {
			content, _ := toolResultContent(tr.Content)
			out = append(out, openai.ToolMessage(content, tr.ToolCallID))
		}
	}
	return out
}

func toolResultContent(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		raw, err := json.Marshal(v)
		return string(raw), err
	}
}

func encodeTools(defs []llm.ToolDefinition) ([]openai.ChatCompletionToolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		params, err := schemaToParameters(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal tool %s schema: %w", d.Name, err)
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func schemaToParameters(schema any) (openai.FunctionParameters, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params openai.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func translateResponse(resp *openai.ChatCompletion) llm.Response {
	var out llm.Response
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Text = choice.Message.Content
		out.StopReason = string(choice.FinishReason)
		for _, call := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:      call.ID,
				Name:    call.Function.Name,
				Payload: parseToolArguments(call.Function.Arguments),
			})
		}
	}
	out.Usage = llm.Usage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	return out
}

func parseToolArguments(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return map[string]any{"raw": raw}
	}
	return payload
}
