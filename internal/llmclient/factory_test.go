package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()
	logger, _ := setupTestLogger(t)

	t.Run("gemini", func(t *testing.T) {
		client, err := NewClient(ctx, getValidLLMConfig(), logger)
		require.NoError(t, err)
		assert.IsType(t, &GeminiClient{}, client)
	})

	t.Run("openai is case-insensitive", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "OpenAI"
		client, err := NewClient(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, client)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "acme"
		_, err := NewClient(ctx, cfg, logger)
		assert.ErrorContains(t, err, "unknown or unsupported LLM provider configured: 'acme'")
	})
}

func TestNewOracle(t *testing.T) {
	ctx := context.Background()
	logger, _ := setupTestLogger(t)

	t.Run("plain client without pacing", func(t *testing.T) {
		cfg := getValidLLMConfig()
		oracle, err := NewOracle(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &GeminiClient{}, oracle)
	})

	t.Run("rate limited", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.RequestsPerMinute = 30
		cfg.Burst = 2
		oracle, err := NewOracle(ctx, cfg, logger)
		require.NoError(t, err)
		limited, ok := oracle.(*RateLimitedOracle)
		require.True(t, ok)
		assert.IsType(t, &GeminiClient{}, limited.next)
	})

	t.Run("separate actor model", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = config.ProviderOpenAI
		cfg.ActModel = "small-model"
		oracle, err := NewOracle(ctx, cfg, logger)
		require.NoError(t, err)
		router, ok := oracle.(*Router)
		require.True(t, ok)
		assert.Equal(t, "test-model", router.planner.(*OpenAIClient).model)
		assert.Equal(t, "small-model", router.actor.(*OpenAIClient).model)
	})

	t.Run("same actor model is not routed", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.ActModel = cfg.Model
		oracle, err := NewOracle(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &GeminiClient{}, oracle)
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.APIKey = ""
		_, err := NewOracle(ctx, cfg, logger)
		assert.Error(t, err)
	})
}
