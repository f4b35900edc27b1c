package temporal_test

import (
	"context"
	"testing"
	"time"

	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/agentloom/agentcore/durable"
	agtemporal "github.com/agentloom/agentcore/durable/temporal"
	"github.com/stretchr/testify/require"
)

// greetWorkflow exercises Engine.RunStep and Engine.Sleep from inside a
// real (test-harness-driven) Temporal workflow execution.
func greetWorkflow(ctx workflow.Context, name string) (string, error) {
	eng := agtemporal.New(ctx)

	result, err := eng.RunStep(context.Background(), durable.StepConfig{Name: "greet"}, func(_ context.Context) (any, error) {
		return "hello " + name, nil
	})
	if err != nil {
		return "", err
	}

	if err := eng.Sleep(context.Background(), time.Millisecond); err != nil {
		return "", err
	}

	return result.(string), nil
}

func TestEngine_RunStepAndSleep(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterActivity(agtemporal.StepActivity)
	env.RegisterWorkflow(greetWorkflow)

	env.ExecuteWorkflow(greetWorkflow, "world")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "hello world", result)
}
