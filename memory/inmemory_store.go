package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/types"
)

// InMemoryStore keeps episodic records in process memory. Suitable for
// tests and single-run sessions that do not need persistence.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    []Record
	dimensions int
	halfLife   time.Duration
	logger     *zap.Logger
}

// NewInMemoryStore creates an in-memory episodic store. dimensions is the
// required embedding length; halfLife <= 0 falls back to DefaultHalfLife.
func NewInMemoryStore(dimensions int, halfLife time.Duration, logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &InMemoryStore{
		records:    make([]Record, 0),
		dimensions: dimensions,
		halfLife:   halfLife,
		logger:     logger.With(zap.String("component", "memory_store_inmemory")),
	}
}

// Record appends a memory entry.
func (s *InMemoryStore) Record(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if len(rec.Embedding) != s.dimensions {
		return types.NewErrorf(types.ErrConfiguration,
			"embedding dimension mismatch: got %d, store requires %d", len(rec.Embedding), s.dimensions)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	copied.Embedding = append([]float64(nil), rec.Embedding...)
	s.records = append(s.records, copied)

	s.logger.Debug("memory record appended",
		zap.String("id", copied.ID),
		zap.String("session_id", copied.SessionID),
		zap.String("kind", string(copied.Kind)))
	return nil
}

// FetchRecent returns the most recent records for a session, newest first.
func (s *InMemoryStore) FetchRecent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Record, 0)
	for _, rec := range s.records {
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		results = append(results, rec)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FetchSimilar returns records ranked by decayed similarity.
func (s *InMemoryStore) FetchSimilar(ctx context.Context, query SimilarityQuery) ([]ScoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query.Embedding) != s.dimensions {
		return nil, types.NewErrorf(types.ErrConfiguration,
			"query dimension mismatch: got %d, store requires %d", len(query.Embedding), s.dimensions)
	}

	s.mu.RLock()
	candidates := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if query.SessionID != "" && rec.SessionID != query.SessionID {
			continue
		}
		candidates = append(candidates, rec)
	}
	s.mu.RUnlock()

	return rankBySimilarity(candidates, query, s.halfLife), nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
