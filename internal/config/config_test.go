// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "pagepilot", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Browser.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 1280, cfg.Browser.Viewport["width"])
	assert.Equal(t, 20, cfg.Agent.MaxSteps)
	assert.Equal(t, time.Second, cfg.Agent.StepDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Agent.ActionDelay)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"browser concurrency", func(c *Config) { c.Browser.Concurrency = 0 }, "browser.concurrency must be a positive integer"},
		{"navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }, "navigation_timeout"},
		{"max steps", func(c *Config) { c.Agent.MaxSteps = 0 }, "max_steps must be greater than 0"},
		{"negative delay", func(c *Config) { c.Agent.StepDelay = -time.Second }, "must not be negative"},
		{"parse retries", func(c *Config) { c.Agent.ParseRetries = 0 }, "parse_retries"},
		{"provider", func(c *Config) { c.LLM.Provider = "carrier-pigeon" }, "unsupported provider"},
		{"model", func(c *Config) { c.LLM.Model = "" }, "model is required"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"store driver", func(c *Config) { c.Store.Driver = "sqlite" }, "unsupported driver"},
		{"postgres dsn", func(c *Config) { c.Store.Driver = StoreDriverPostgres }, "dsn is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yaml := []byte(`
browser:
  headless: false
  concurrency: 2
agent:
  max_steps: 7
  step_delay: 250ms
  state_file: ~/pp/state.json
llm:
  provider: openai
  model: gpt-4o-mini
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

	t.Setenv(EnvPrefix+"_LLM_API_KEY", "sk-test")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Browser.Concurrency)
	assert.Equal(t, 7, cfg.Agent.MaxSteps)
	assert.Equal(t, 250*time.Millisecond, cfg.Agent.StepDelay)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)

	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pp", "state.json"), cfg.Agent.StateFile)
}

func TestNewConfigFromViper_ProviderKeyFallback(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	t.Setenv(EnvPrefix+"_LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gm-key")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "gm-key", cfg.LLM.APIKey)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.max_steps", -1)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestExpandPath(t *testing.T) {
	p, err := ExpandPath("")
	require.NoError(t, err)
	assert.Empty(t, p)

	p, err = ExpandPath("/abs/file.json")
	require.NoError(t, err)
	assert.Equal(t, "/abs/file.json", p)
}
