package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/types"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(SQLiteConfig{
		Path:       filepath.Join(t.TempDir(), "memory.db"),
		Dimensions: 3,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"inmemory": NewInMemoryStore(3, DefaultHalfLife, zap.NewNop()),
		"sqlite":   sqliteStore,
	}
}

func TestRecordAndFetchRecent(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 3; i++ {
				require.NoError(t, store.Record(ctx, &Record{
					SessionID: "s1",
					Kind:      KindArgument,
					Round:     i + 1,
					Content:   "point",
					Embedding: []float64{1, 0, 0},
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}))
			}
			require.NoError(t, store.Record(ctx, &Record{
				SessionID: "other",
				Kind:      KindArgument,
				Content:   "unrelated",
				Embedding: []float64{0, 1, 0},
				CreatedAt: base,
			}))

			recent, err := store.FetchRecent(ctx, "s1", 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, 3, recent[0].Round, "newest first")
			assert.Equal(t, 2, recent[1].Round)
		})
	}
}

func TestRecordDimensionMismatch(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.Record(ctx, &Record{
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "bad",
				Embedding: []float64{1, 0}, // store requires 3
			})
			require.Error(t, err)
			var terr *types.Error
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, types.ErrConfiguration, terr.Code)

			// nothing was written
			recent, err := store.FetchRecent(ctx, "s1", 0)
			require.NoError(t, err)
			assert.Empty(t, recent)
		})
	}
}

func TestFetchSimilarDecayOrdering(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for name, store := range newStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Identical similarity, different ages: the fresh record must
			// outrank the stale one after decay.
			require.NoError(t, store.Record(ctx, &Record{
				ID:        "stale",
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "old take",
				Embedding: []float64{1, 0, 0},
				CreatedAt: now.Add(-14 * 24 * time.Hour),
			}))
			require.NoError(t, store.Record(ctx, &Record{
				ID:        "fresh",
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "new take",
				Embedding: []float64{1, 0, 0},
				CreatedAt: now.Add(-time.Hour),
			}))
			// Orthogonal record, excluded by min similarity.
			require.NoError(t, store.Record(ctx, &Record{
				ID:        "offtopic",
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "noise",
				Embedding: []float64{0, 1, 0},
				CreatedAt: now,
			}))

			hits, err := store.FetchSimilar(ctx, SimilarityQuery{
				SessionID:     "s1",
				Embedding:     []float64{1, 0, 0},
				MinSimilarity: 0.5,
				Now:           now,
			})
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, "fresh", hits[0].Record.ID)
			assert.Equal(t, "stale", hits[1].Record.ID)
			assert.Greater(t, hits[0].Score, hits[1].Score)
			assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
		})
	}
}

func TestFetchSimilarEqualScoresTieBreakByRecency(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	sqliteStore, err := NewSQLiteStore(SQLiteConfig{
		Path:       filepath.Join(t.TempDir(), "memory.db"),
		Dimensions: 4,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	stores := map[string]Store{
		"inmemory": NewInMemoryStore(4, DefaultHalfLife, zap.NewNop()),
		"sqlite":   sqliteStore,
	}
	for name, store := range stores {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Perfect match aged exactly one half-life: 1.0 * 0.5.
			require.NoError(t, store.Record(ctx, &Record{
				ID:        "older",
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "old but on point",
				Embedding: []float64{1, 0, 0, 0},
				CreatedAt: now.Add(-DefaultHalfLife),
			}))
			// Half match with no decay: 0.5 * 1.0. Scores are equal, so
			// ordering must fall back to recency, newest first.
			require.NoError(t, store.Record(ctx, &Record{
				ID:        "newer",
				SessionID: "s1",
				Kind:      KindArgument,
				Content:   "fresh but tangential",
				Embedding: []float64{1, 1, 1, 1},
				CreatedAt: now,
			}))

			hits, err := store.FetchSimilar(ctx, SimilarityQuery{
				SessionID: "s1",
				Embedding: []float64{1, 0, 0, 0},
				Now:       now,
			})
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, hits[0].Score, hits[1].Score)
			assert.Equal(t, "newer", hits[0].Record.ID)
			assert.Equal(t, "older", hits[1].Record.ID)
		})
	}
}

func TestFetchSimilarQueryDimensionMismatch(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(3, 0, zap.NewNop())
	_, err := store.FetchSimilar(context.Background(), SimilarityQuery{
		Embedding: []float64{1, 0},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.CodeOf(err))
}

func TestDecayWeight(t *testing.T) {
	t.Parallel()

	hl := 7 * 24 * time.Hour
	assert.InDelta(t, 1.0, DecayWeight(0, hl), 1e-9)
	assert.InDelta(t, 0.5, DecayWeight(hl, hl), 1e-9)
	assert.InDelta(t, 0.25, DecayWeight(2*hl, hl), 1e-9)
	assert.InDelta(t, 1.0, DecayWeight(-time.Hour, hl), 1e-9, "future timestamps clamp")
	assert.InDelta(t, 1.0, DecayWeight(time.Hour, 0), 1e-9, "zero half-life disables decay")
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1, 0}, []float64{1}), "length mismatch")
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 0}), "zero vector")
}
