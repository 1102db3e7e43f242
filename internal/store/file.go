package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// FileStore keeps each session's state in a JSON file. The default session
// lives at path; session "x" lives next to it as <stem>.x<ext>.
type FileStore struct {
	path string
	log  *zap.Logger
}

var _ StateStore = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, log: logger.Named("store.file")}, nil
}

// PathFor returns the file holding session.
func (f *FileStore) PathFor(session string) (string, error) {
	session, err := normalizeSession(session)
	if err != nil {
		return "", err
	}
	if session == DefaultSession {
		return f.path, nil
	}
	ext := filepath.Ext(f.path)
	return strings.TrimSuffix(f.path, ext) + "." + session + ext, nil
}

// Load reads the state of session. A missing file is an empty state.
func (f *FileStore) Load(_ context.Context, session string) (schemas.AgentState, error) {
	path, err := f.PathFor(session)
	if err != nil {
		return schemas.AgentState{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return schemas.AgentState{}.Clone(), nil
	}
	if err != nil {
		return schemas.AgentState{}, fmt.Errorf("failed to read state file: %w", err)
	}
	return schemas.UnmarshalState(data)
}

// Save writes the state of session atomically: a temporary file in the same
// directory is renamed over the target.
func (f *FileStore) Save(_ context.Context, session string, state schemas.AgentState) error {
	path, err := f.PathFor(session)
	if err != nil {
		return err
	}
	data, err := schemas.MarshalState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	f.log.Debug("Agent state saved.", zap.String("path", path), zap.Int("history", len(state.History)))
	return nil
}

// Clear removes the state file of session.
func (f *FileStore) Clear(_ context.Context, session string) error {
	path, err := f.PathFor(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
