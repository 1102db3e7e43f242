package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Open builds the state store selected by cfg.Store. The returned close
// function releases any connection pool and is always safe to call.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (StateStore, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Store.Driver) {
	case "", config.StoreDriverFile:
		fileStore, err := NewFileStore(cfg.Agent.StateFile, logger)
		if err != nil {
			return nil, noop, err
		}
		return fileStore, noop, nil

	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to ping database: %w", err)
		}
		s, err := New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return s, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
