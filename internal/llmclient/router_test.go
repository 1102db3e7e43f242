package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// setupRouter creates a Router with two mock oracles.
func setupRouter(t *testing.T) (*Router, *MockOracle, *MockOracle) {
	t.Helper()
	logger, _ := setupTestLogger(t)
	planner := &MockOracle{Name: "planner"}
	actor := &MockOracle{Name: "actor"}
	router, err := NewRouter(logger, planner, actor)
	require.NoError(t, err)
	return router, planner, actor
}

func TestNewRouter_MissingOracles(t *testing.T) {
	valid := new(MockOracle)
	tests := []struct {
		name           string
		planner, actor schemas.Oracle
	}{
		{"missing planner", nil, valid},
		{"missing actor", valid, nil},
		{"missing both", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewRouter(nil, tt.planner, tt.actor)
			assert.Nil(t, router)
			assert.EqualError(t, err, "both planner and actor oracles must be provided")
		})
	}
}

func TestRouter_Invoke(t *testing.T) {
	ctx := context.Background()
	msgs := conversation()

	t.Run("free text goes to planner", func(t *testing.T) {
		router, planner, actor := setupRouter(t)
		opts := schemas.InvokeOptions{}
		planner.On("Invoke", ctx, msgs, opts).Return("plan", nil).Once()

		out, err := router.Invoke(ctx, msgs, opts)
		require.NoError(t, err)
		assert.Equal(t, "plan", out)
		planner.AssertExpectations(t)
		actor.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("structured goes to actor", func(t *testing.T) {
		router, planner, actor := setupRouter(t)
		opts := schemas.InvokeOptions{Structured: true}
		actor.On("Invoke", ctx, msgs, opts).Return("", errors.New("boom")).Once()

		_, err := router.Invoke(ctx, msgs, opts)
		assert.EqualError(t, err, "boom")
		actor.AssertExpectations(t)
		planner.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})
}
