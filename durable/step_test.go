package durable_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentloom/agentcore/durable"
	"github.com/agentloom/agentcore/durable/inmem"
	"github.com/agentloom/agentcore/toolerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStep_NilEngineIsTransparent(t *testing.T) {
	called := false
	result, err := durable.RunStep(context.Background(), nil, durable.StepConfig{Name: "x"}, func(ctx context.Context) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", result)
}

func TestRunStep_InmemRetries(t *testing.T) {
	attempts := 0
	eng := inmem.New()
	result, err := durable.RunStep(context.Background(), eng, durable.StepConfig{
		Name:  "flaky",
		Retry: durable.RetryPolicy{MaxAttempts: 3},
	}, func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, toolerrors.New(toolerrors.KindToolExecution, "transient")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, attempts)
}

func TestRunStep_InmemFatalNotRetried(t *testing.T) {
	attempts := 0
	eng := inmem.New()
	_, err := durable.RunStep(context.Background(), eng, durable.StepConfig{Name: "x"}, func(ctx context.Context) (any, error) {
		attempts++
		return nil, toolerrors.New(toolerrors.KindFatal, "nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, toolerrors.Is(err, toolerrors.KindFatal))
}

func TestRunStep_InmemExhaustsBudget(t *testing.T) {
	attempts := 0
	eng := inmem.New()
	_, err := durable.RunStep(context.Background(), eng, durable.StepConfig{
		Name:  "x",
		Retry: durable.RetryPolicy{MaxAttempts: 2},
	}, func(ctx context.Context) (any, error) {
		attempts++
		return nil, toolerrors.New(toolerrors.KindToolExecution, "always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
}

func TestDetector_NilEngine(t *testing.T) {
	d := durable.NewDetector(nil, nil)
	assert.False(t, d.Detect(context.Background()))
	assert.Nil(t, d.Engine(context.Background()))
}

func TestDetector_CachesAcrossCalls(t *testing.T) {
	eng := &countingPingEngine{}
	d := durable.NewDetector(eng, nil)
	for i := 0; i < 5; i++ {
		assert.True(t, d.Detect(context.Background()))
	}
	assert.Equal(t, 1, eng.pings)
}

type countingPingEngine struct{ pings int }

func (e *countingPingEngine) Ping(context.Context) error {
	e.pings++
	return nil
}
func (e *countingPingEngine) Sleep(context.Context, time.Duration) error { return nil }
func (e *countingPingEngine) RunStep(context.Context, durable.StepConfig, durable.StepFunc) (any, error) {
	return nil, nil
}
