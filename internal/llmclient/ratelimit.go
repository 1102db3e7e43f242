package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// RateLimitedOracle paces calls to the wrapped oracle.
type RateLimitedOracle struct {
	next    schemas.Oracle
	limiter *rate.Limiter
}

// WithRateLimit wraps next so that it is called at most requestsPerMinute
// times per minute, with bursts of up to burst calls. A non-positive rate
// returns next unchanged.
func WithRateLimit(next schemas.Oracle, requestsPerMinute float64, burst int) schemas.Oracle {
	if requestsPerMinute <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedOracle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60), burst),
	}
}

// Invoke waits for a token and then calls the wrapped oracle.
func (r *RateLimitedOracle) Invoke(ctx context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Invoke(ctx, messages, opts)
}
