package reflection_test

import (
	"strings"
	"testing"

	"github.com/agentloom/agentcore/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldInject_None(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.None}
	for step := 0; step < 5; step++ {
		assert.False(t, reflection.ShouldInject(cfg, step))
	}
}

func TestShouldInject_Reflact(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.Reflact}
	assert.False(t, reflection.ShouldInject(cfg, 0))
	assert.True(t, reflection.ShouldInject(cfg, 1))
	assert.True(t, reflection.ShouldInject(cfg, 2))
}

func TestShouldInject_Periodic(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.Periodic, Frequency: 3}
	cases := map[int]bool{0: false, 1: false, 2: false, 3: true, 4: false, 6: true}
	for step, want := range cases {
		assert.Equal(t, want, reflection.ShouldInject(cfg, step), "step %d", step)
	}
}

func TestShouldInject_PeriodicDefaultFrequency(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.Periodic}
	assert.True(t, reflection.ShouldInject(cfg, reflection.DefaultFrequency))
	assert.False(t, reflection.ShouldInject(cfg, reflection.DefaultFrequency+1))
}

func TestCompose_PreservesBase(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.Reflact}
	base := "You are a helpful agent."
	got := reflection.Compose(cfg, 1, base)
	require.True(t, strings.HasPrefix(got, base))
	assert.Contains(t, got, "<reflection>")
}

func TestCompose_NoInjectReturnsBaseUnchanged(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.None}
	base := "base prompt"
	assert.Equal(t, base, reflection.Compose(cfg, 5, base))
}

func TestCompose_CustomTemplate(t *testing.T) {
	cfg := reflection.Config{Strategy: reflection.Reflact, Template: "<reflection>custom</reflection>"}
	got := reflection.Compose(cfg, 1, "base")
	assert.Contains(t, got, "custom")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, reflection.EstimateTokens(reflection.Config{Strategy: reflection.None}))

	cfg := reflection.Config{Strategy: reflection.Reflact}
	est := reflection.EstimateTokens(cfg)
	assert.Equal(t, len(reflection.Fragment(cfg))/4, est)
	assert.Greater(t, est, 0)
}
