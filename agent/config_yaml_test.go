package agent_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentloom/agentcore/agent"
	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/reflection"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML_ParsesDeclarativeFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "researcher.yaml")
	body := `
name: researcher
instructions: Focus on primary sources.
workspace_root: /work/researcher
tier: fast
max_steps: 12
max_spawn_depth: 2
skills:
  - name: web-search
    description: Search the web for sources.
reflection:
  strategy: periodic
  frequency: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := agent.LoadConfigYAML(path)
	require.NoError(t, err)

	require.Equal(t, "researcher", cfg.Name)
	require.Equal(t, "Focus on primary sources.", cfg.Instructions)
	require.Equal(t, llm.TierFast, cfg.Tier)
	require.Equal(t, 12, cfg.MaxSteps)
	require.Equal(t, 2, cfg.MaxSpawnDepth)
	require.Len(t, cfg.Skills, 1)
	require.Equal(t, "web-search", cfg.Skills[0].Name)
	require.Equal(t, reflection.Periodic, cfg.Reflection.Strategy)
	require.Equal(t, 3, cfg.Reflection.Frequency)

	require.Nil(t, cfg.Provider)
}

func TestLoadConfigYAML_MissingFileReturnsError(t *testing.T) {
	_, err := agent.LoadConfigYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
