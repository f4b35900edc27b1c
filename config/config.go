// Package config loads the boot-time environment configuration consumed
// by the Public Agent Factory: telemetry credentials, model tier
// overrides, provider-enable flags, and a couple of ambient toggles.
// Every variable is optional; a Config built from an empty environment is
// still usable, with every feature it gates simply disabled.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the resolved boot-time configuration.
type Config struct {
	// TelemetryPublicKey/TelemetrySecretKey/TelemetryBaseURL are the
	// telemetry exporter credentials. Telemetry is only enabled when both
	// keys are present (see TelemetryEnabled).
	TelemetryPublicKey string
	TelemetrySecretKey string
	TelemetryBaseURL   string

	// Geolocation reports the GEOLOCATION_ENABLED flag (spec §6 env vars).
	// Nothing else in this module reads it.
	Geolocation bool

	// LogLevel is one of "debug", "info", "warn", "error". Defaults to
	// "info" when unset or unrecognised.
	LogLevel string

	// ModelFast/ModelStandard override the default model identifier each
	// tier resolves to (spec §6 tiered selection contract).
	ModelFast     string
	ModelStandard string

	// AnthropicEnabled/OpenAIEnabled/BedrockEnabled report which
	// llm.Provider adapters the environment enables. The agent factory does
	// not read them: callers construct and pass in a Provider themselves.
	AnthropicEnabled bool
	OpenAIEnabled    bool
	BedrockEnabled   bool

	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// FromEnv loads a .env file (if present) and resolves Config from the
// process environment. A missing .env file is not an error: the process
// environment alone is a valid source.
func FromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		TelemetryPublicKey: os.Getenv("TELEMETRY_PUBLIC_KEY"),
		TelemetrySecretKey: os.Getenv("TELEMETRY_SECRET_KEY"),
		TelemetryBaseURL:   os.Getenv("TELEMETRY_BASE_URL"),
		Geolocation:        boolEnv("GEOLOCATION_ENABLED", false),
		LogLevel:           strings.ToLower(envOr("LOG_LEVEL", "info")),
		ModelFast:          os.Getenv("MODEL_FAST"),
		ModelStandard:      os.Getenv("MODEL_STANDARD"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
	}
	cfg.AnthropicEnabled = boolEnv("ANTHROPIC_ENABLED", cfg.AnthropicAPIKey != "")
	cfg.OpenAIEnabled = boolEnv("OPENAI_ENABLED", cfg.OpenAIAPIKey != "")
	cfg.BedrockEnabled = boolEnv("BEDROCK_ENABLED", false)

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// TelemetryEnabled reports whether both telemetry keys are present, per
// spec §6's "enable telemetry when both public and secret present" rule.
func (c *Config) TelemetryEnabled() bool {
	return c.TelemetryPublicKey != "" && c.TelemetrySecretKey != ""
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
