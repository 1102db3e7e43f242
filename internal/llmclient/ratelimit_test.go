package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

func TestWithRateLimit_Disabled(t *testing.T) {
	next := new(MockOracle)
	assert.Same(t, next, WithRateLimit(next, 0, 5))
}

func TestWithRateLimit_PassesThrough(t *testing.T) {
	next := new(MockOracle)
	next.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return("ok", nil).Twice()
	limited := WithRateLimit(next, 6000, 2)

	for i := 0; i < 2; i++ {
		out, err := limited.Invoke(context.Background(), conversation(), schemas.InvokeOptions{})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	next.AssertExpectations(t)
}

func TestWithRateLimit_WaitHonorsContext(t *testing.T) {
	next := new(MockOracle)
	next.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return("ok", nil).Once()
	// One call per minute: the burst token is spent by the first call.
	limited := WithRateLimit(next, 1, 0)

	_, err := limited.Invoke(context.Background(), conversation(), schemas.InvokeOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Invoke(ctx, conversation(), schemas.InvokeOptions{})
	assert.ErrorContains(t, err, "rate limiter")
	next.AssertNumberOfCalls(t, "Invoke", 1)
}
