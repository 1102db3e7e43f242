package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// MockOracle is a mock implementation of schemas.Oracle for testing.
type MockOracle struct {
	mock.Mock
	Name string
}

// Invoke mocks the Invoke method.
func (m *MockOracle) Invoke(ctx context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a valid LLMConfig for testing purposes.
func getValidLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderGemini,
		APIKey:      "test-api-key",
		Model:       "test-model",
		Timeout:     5 * time.Second,
		Temperature: 0.7,
		MaxTokens:   512,
	}
}

func conversation() []schemas.Message {
	return []schemas.Message{
		{Role: schemas.RoleSystem, Content: "You are a web agent."},
		{Role: schemas.RoleUser, Content: "Click the search button."},
	}
}
