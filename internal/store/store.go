package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// DefaultSession names the state blob used when the caller does not pick one.
const DefaultSession = "default"

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrInvalidSession is returned for session names that are not safe to use
// as file name components or keys.
var ErrInvalidSession = errors.New("invalid session name")

// StateStore persists agent state blobs by session name. Loading a session
// that was never saved yields an empty state.
type StateStore interface {
	Load(ctx context.Context, session string) (schemas.AgentState, error)
	Save(ctx context.Context, session string, state schemas.AgentState) error
	Clear(ctx context.Context, session string) error
}

func normalizeSession(session string) (string, error) {
	if session == "" {
		return DefaultSession, nil
	}
	if !sessionPattern.MatchString(session) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	return session, nil
}

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS agent_states (
            session    TEXT PRIMARY KEY,
            state      JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`
	sqlSelectState = `SELECT state FROM agent_states WHERE session = $1;`
	sqlUpsertState = `
        INSERT INTO agent_states (session, state, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (session) DO UPDATE SET
            state = EXCLUDED.state,
            updated_at = EXCLUDED.updated_at;`
	sqlDeleteState = `DELETE FROM agent_states WHERE session = $1;`
)

// Store provides a PostgreSQL implementation of StateStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ StateStore = (*Store)(nil)

// New creates a new store instance and makes sure its table exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, sqlCreateTable); err != nil {
		return nil, fmt.Errorf("failed to prepare agent_states table: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store.postgres"),
	}, nil
}

// Load reads the state of session.
func (s *Store) Load(ctx context.Context, session string) (schemas.AgentState, error) {
	session, err := normalizeSession(session)
	if err != nil {
		return schemas.AgentState{}, err
	}

	var data []byte
	if err := s.pool.QueryRow(ctx, sqlSelectState, session).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schemas.AgentState{}.Clone(), nil
		}
		return schemas.AgentState{}, fmt.Errorf("failed to load state for session %q: %w", session, err)
	}
	return schemas.UnmarshalState(data)
}

// Save replaces the state of session.
func (s *Store) Save(ctx context.Context, session string, state schemas.AgentState) error {
	session, err := normalizeSession(session)
	if err != nil {
		return err
	}
	data, err := schemas.MarshalState(state)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlUpsertState, session, data); err != nil {
		return fmt.Errorf("failed to save state for session %q: %w", session, err)
	}
	s.log.Debug("Agent state saved.", zap.String("session", session), zap.Int("history", len(state.History)))
	return nil
}

// Clear deletes the state of session. Clearing a missing session is not an error.
func (s *Store) Clear(ctx context.Context, session string) error {
	session, err := normalizeSession(session)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlDeleteState, session); err != nil {
		return fmt.Errorf("failed to clear state for session %q: %w", session, err)
	}
	return nil
}
