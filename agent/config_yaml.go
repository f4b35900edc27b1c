package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentloom/agentcore/llm"
	"github.com/agentloom/agentcore/reflection"
	"github.com/agentloom/agentcore/sysprompt"
)

// yamlConfig is the declarative, file-friendly subset of Config: the
// fields a caller plausibly wants to hand-author outside Go source.
// Provider, Tools, Memory, Guardrails, and Durable remain Go-only, since
// they're live values rather than data.
type yamlConfig struct {
	Name          string          `yaml:"name"`
	Instructions  string          `yaml:"instructions"`
	WorkspaceRoot string          `yaml:"workspace_root"`
	StateRoot     string          `yaml:"state_root"`
	Tier          string          `yaml:"tier"`
	MaxSteps      int             `yaml:"max_steps"`
	MaxSpawnDepth int             `yaml:"max_spawn_depth"`
	Skills        []sysprompt.Skill `yaml:"skills"`
	Reflection    struct {
		Strategy  string `yaml:"strategy"`
		Frequency int    `yaml:"frequency"`
	} `yaml:"reflection"`
}

// LoadConfigYAML reads a declarative agent definition from path and
// returns the corresponding Config. Provider is left nil: the caller
// must set it before passing the result to New, since this package never
// guesses which model provider to construct.
func LoadConfigYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("agent: read config %q: %w", path, err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("agent: parse config %q: %w", path, err)
	}

	cfg := Config{
		Name:          yc.Name,
		Instructions:  yc.Instructions,
		WorkspaceRoot: yc.WorkspaceRoot,
		StateRoot:     yc.StateRoot,
		Tier:          llm.Tier(yc.Tier),
		MaxSteps:      yc.MaxSteps,
		MaxSpawnDepth: yc.MaxSpawnDepth,
		Skills:        yc.Skills,
		Reflection: reflection.Config{
			Strategy:  reflection.Strategy(yc.Reflection.Strategy),
			Frequency: yc.Reflection.Frequency,
		},
	}
	return cfg, nil
}
