// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// NewOracle builds the oracle described by cfg: a provider client, routed
// to a second model for actions when cfg.ActModel is set, and rate limited.
func NewOracle(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.Oracle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	planner, err := NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	oracle := planner
	if act := strings.TrimSpace(cfg.ActModel); act != "" && act != cfg.Model {
		actCfg := cfg
		actCfg.Model = act
		actor, err := NewClient(ctx, actCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create actor oracle: %w", err)
		}
		if oracle, err = NewRouter(logger, planner, actor); err != nil {
			return nil, err
		}
	}
	return WithRateLimit(oracle, cfg.RequestsPerMinute, cfg.Burst), nil
}

// NewClient creates the provider client for cfg.Provider and cfg.Model.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}
