package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/councilflow/types"
)

// ErrNotFound is returned when no checkpoint exists for a session.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a full session snapshot taken at a phase boundary.
type Checkpoint struct {
	SessionID string               `json:"session_id"`
	Phase     string               `json:"phase"`
	Sequence  int                  `json:"sequence"`
	State     *types.SessionState  `json:"state"`
	CreatedAt time.Time            `json:"created_at"`
}

// Store persists checkpoints. Save overwrites the session's latest snapshot;
// earlier phases are superseded, not kept.
type Store interface {
	// Save persists the checkpoint as the session's latest snapshot.
	Save(ctx context.Context, cp *Checkpoint) error

	// LoadLatest returns the most recent checkpoint for a session, or
	// ErrNotFound.
	LoadLatest(ctx context.Context, sessionID string) (*Checkpoint, error)

	// List returns the session IDs with at least one checkpoint.
	List(ctx context.Context) ([]string, error)

	// Close releases any underlying resources.
	Close() error
}
