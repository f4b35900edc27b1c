package config_test

import (
	"testing"

	"github.com/agentloom/agentcore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_DefaultsWithEmptyEnvironment(t *testing.T) {
	clearEnv(t, "TELEMETRY_PUBLIC_KEY", "TELEMETRY_SECRET_KEY", "LOG_LEVEL", "MODEL_FAST", "MODEL_STANDARD")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.TelemetryEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ModelFast)
}

func TestFromEnv_TelemetryEnabledOnlyWithBothKeys(t *testing.T) {
	t.Setenv("TELEMETRY_PUBLIC_KEY", "pub-123")
	t.Setenv("TELEMETRY_SECRET_KEY", "")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.TelemetryEnabled())

	t.Setenv("TELEMETRY_SECRET_KEY", "sec-456")
	cfg, err = config.FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.TelemetryEnabled())
}

func TestFromEnv_ModelOverrides(t *testing.T) {
	t.Setenv("MODEL_FAST", "claude-haiku")
	t.Setenv("MODEL_STANDARD", "claude-sonnet")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku", cfg.ModelFast)
	assert.Equal(t, "claude-sonnet", cfg.ModelStandard)
}

func TestFromEnv_ProviderEnabledDefaultsFromAPIKeyPresence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("ANTHROPIC_ENABLED", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_ENABLED", "")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.AnthropicEnabled)
	assert.False(t, cfg.OpenAIEnabled)
}

func TestFromEnv_GeolocationFlag(t *testing.T) {
	t.Setenv("GEOLOCATION_ENABLED", "true")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Geolocation)
}
