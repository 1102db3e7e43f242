package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Router sends planning calls and structured action calls to different
// oracles.
type Router struct {
	logger  *zap.Logger
	planner schemas.Oracle
	actor   schemas.Oracle
}

var _ schemas.Oracle = (*Router)(nil)

// NewRouter creates a router over the two oracles.
func NewRouter(logger *zap.Logger, planner, actor schemas.Oracle) (*Router, error) {
	if planner == nil || actor == nil {
		return nil, fmt.Errorf("both planner and actor oracles must be provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:  logger.Named("llm_router"),
		planner: planner,
		actor:   actor,
	}, nil
}

// Invoke routes structured requests to the actor and everything else to
// the planner.
func (r *Router) Invoke(ctx context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	if opts.Structured {
		r.logger.Debug("Routing LLM request", zap.String("route", "actor"))
		return r.actor.Invoke(ctx, messages, opts)
	}
	r.logger.Debug("Routing LLM request", zap.String("route", "planner"))
	return r.planner.Invoke(ctx, messages, opts)
}
