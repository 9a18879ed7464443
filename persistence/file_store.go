package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// FileStore persists checkpoints under baseDir/<sessionID>/. Each save
// atomically replaces checkpoint.json (temp file + rename) and rewrites
// transcript.md alongside it.
type FileStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileStore creates a file-backed checkpoint store rooted at baseDir.
func NewFileStore(baseDir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		logger:  logger.With(zap.String("component", "checkpoint_store_file")),
	}, nil
}

func (s *FileStore) sessionDir(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

// Save writes the checkpoint JSON atomically and regenerates the transcript.
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cp == nil || cp.State == nil {
		return fmt.Errorf("checkpoint state is nil")
	}
	dir := s.sessionDir(cp.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "checkpoint.json"), data); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, "transcript.md"), []byte(RenderTranscript(cp.State))); err != nil {
		return err
	}

	s.logger.Debug("checkpoint saved",
		zap.String("session_id", cp.SessionID),
		zap.String("phase", cp.Phase),
		zap.Int("sequence", cp.Sequence))
	return nil
}

// LoadLatest reads the session's checkpoint, or ErrNotFound.
func (s *FileStore) LoadLatest(ctx context.Context, sessionID string) (*Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.sessionDir(sessionID), "checkpoint.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns the session IDs with a saved checkpoint, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.baseDir, entry.Name(), "checkpoint.json")); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// writeAtomic writes data to path via a temp file and rename so readers
// never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
