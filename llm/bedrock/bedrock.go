// Package bedrock provides an llm.Provider implementation backed by the AWS
// Bedrock Converse API, using github.com/aws/aws-sdk-go-v2/service/bedrockruntime.
// It is grounded on the teacher's Bedrock model-client adapter, narrowed to
// the Converse subset the tool loop needs: split system vs conversational
// messages, encode tool schemas into a ToolConfiguration, and translate
// Converse responses back into the generic llm types.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/agentloom/agentcore/llm"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client used by
// the adapter, matching *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter's model resolution per tier.
type Options struct {
	FastModel     string
	StandardModel string
	MaxTokens     int
}

// Client implements llm.Provider on top of AWS Bedrock Converse.
type Client struct {
	runtime  RuntimeClient
	fast     string
	standard string
	maxTok   int
}

var _ llm.Provider = (*Client)(nil)

// New builds a Bedrock-backed provider.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock runtime client is required")
	}
	if opts.StandardModel == "" {
		return nil, errors.New("standard model identifier is required")
	}
	return &Client{runtime: runtime, fast: opts.FastModel, standard: opts.StandardModel, maxTok: opts.MaxTokens}, nil
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
	input, err := c.prepareInput(req)
	if err != nil {
		return llm.Response{}, err
	}
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return llm.Response{}, fmt.Errorf("bedrock converse: %w", wrapAPIError(err))
	}
	return translateOutput(out), nil
}

// wrapAPIError annotates err with the Bedrock API error code and fault side
// (client vs server) when it is a smithy-go API error, so callers can tell
// a malformed request apart from a transient service-side failure without
// string-matching the error text.
func wrapAPIError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	fault := "unknown"
	switch apiErr.ErrorFault() {
	case smithy.FaultClient:
		fault = "client"
	case smithy.FaultServer:
		fault = "server"
	}
	return fmt.Errorf("%s (code=%s, fault=%s): %w", apiErr.ErrorMessage(), apiErr.ErrorCode(), fault, err)
}

// Stream implements llm.Provider. This adapter issues a single Converse call
// and replays the result as one text chunk, one chunk per tool call, and a
// terminal stop chunk; ConverseStream is not used.
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

func (c *Client) prepareInput(req llm.Request) (*bedrockruntime.ConverseInput, error) {
	messages, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.resolveModelID(req.Tier)),
		Messages: messages,
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	if maxTokens > 0 {
		input.InferenceConfig = &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(int32(maxTokens))}
	}
	if len(req.Tools) > 0 {
		tc, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		input.ToolConfig = tc
	}
	return input, nil
}

func encodeMessages(msgs []llm.Message) ([]brtypes.Message, error) {
	out := make([]brtypes.Message, 0, len(msgs))
	for _, m := range msgs {
		var blocks []brtypes.ContentBlock
		if m.Text != "" {
			blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Text})
		}
		var role brtypes.ConversationRole
		switch m.Role {
		case llm.RoleUser:
			role = brtypes.ConversationRoleUser
			for _, tr := range m.ToolResults {
				content, err := toolResultContent(tr.Content)
				if err != nil {
					return nil, err
				}
				status := brtypes.ToolResultStatusSuccess
				if tr.IsError {
					status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(tr.ToolCallID),
						Status:    status,
						Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: content}},
					},
				})
			}
		case llm.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(tc.Payload),
					},
				})
			}
		default:
			continue
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
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
		return string(raw), err
	}
}

func encodeTools(defs []llm.ToolDefinition) (*brtypes.ToolConfiguration, error) {
	specs := make([]brtypes.Tool, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(d.Name),
				Description: aws.String(d.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(d.InputSchema),
				},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: specs}, nil
}

func translateOutput(out *bedrockruntime.ConverseOutput) llm.Response {
	var resp llm.Response
	if msgOutput, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				resp.Text += v.Value
			case *brtypes.ContentBlockMemberToolUse:
				var payload map[string]any
				_ = v.Value.Input.UnmarshalSmithyDocument(&payload)
				resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
					ID:      aws.ToString(v.Value.ToolUseId),
					Name:    aws.ToString(v.Value.Name),
					Payload: payload,
				})
			}
		}
	}
	resp.StopReason = string(out.StopReason)
	if out.Usage != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return resp
}
