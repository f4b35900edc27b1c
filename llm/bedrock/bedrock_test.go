package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentloom/agentcore/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	gotInput *bedrockruntime.ConverseInput
	output   *bedrockruntime.ConverseOutput
	err      error
}

func (f *fakeRuntime) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.gotInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestNew_RequiresRuntimeAndModel(t *testing.T) {
	_, err := New(nil, Options{StandardModel: "model"})
	assert.Error(t, err)

	_, err = New(&fakeRuntime{}, Options{})
	assert.Error(t, err)
}

func TestGenerate_TranslatesTextResponse(t *testing.T) {
	fake := &fakeRuntime{output: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "hello from bedrock"},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(7),
			OutputTokens: aws.Int32(3),
			TotalTokens:  aws.Int32(10),
		},
	}}
	c, err := New(fake, Options{StandardModel: "anthropic.claude", MaxTokens: 512})
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from bedrock", resp.Text)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic.claude", aws.ToString(fake.gotInput.ModelId))
}

func TestGenerate_RequiresMessages(t *testing.T) {
	c, err := New(&fakeRuntime{}, Options{StandardModel: "model"})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), llm.Request{})
	assert.Error(t, err)
}

func TestGenerate_FastTierSelectsFastModel(t *testing.T) {
	fake := &fakeRuntime{output: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{}},
	}}
	c, err := New(fake, Options{StandardModel: "standard-model", FastModel: "fast-model"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), llm.Request{
		Tier:     llm.TierFast,
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "fast-model", aws.ToString(fake.gotInput.ModelId))
}
