package memory

import (
	"context"
	"time"
)

// RecordKind classifies what a memory record captures.
type RecordKind string

const (
	KindArgument  RecordKind = "argument"
	KindDecision  RecordKind = "decision"
	KindSummary   RecordKind = "summary"
	KindObservation RecordKind = "observation"
)

// Record is a single episodic memory entry. Records are append-only: nothing
// in this package ever updates or deletes one.
type Record struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Kind           RecordKind `json:"kind"`
	ParticipantKey string     `json:"participant_key,omitempty"`
	Round          int        `json:"round,omitempty"`
	Content        string     `json:"content"`
	Embedding      []float64  `json:"embedding"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ScoredRecord pairs a record with its decayed similarity score.
type ScoredRecord struct {
	Record Record
	// Score is cosine similarity multiplied by the time-decay weight.
	Score float64
	// Similarity is the raw cosine similarity before decay.
	Similarity float64
}

// SimilarityQuery asks for records similar to an embedded query.
type SimilarityQuery struct {
	// SessionID restricts results to one session when non-empty.
	SessionID string
	// Embedding is the query vector. Required.
	Embedding []float64
	// Limit caps the number of results. Zero means no cap.
	Limit int
	// MinSimilarity excludes records whose raw cosine similarity is below
	// this value, regardless of how recent they are.
	MinSimilarity float64
	// Now anchors the decay computation. Zero means time.Now().
	Now time.Time
}

// Store is the episodic memory store contract. Implementations must be safe
// for concurrent use.
type Store interface {
	// Record appends a memory entry. The embedding dimensionality is
	// validated against the store's configured dimensions before any write.
	Record(ctx context.Context, rec *Record) error

	// FetchRecent returns the most recent records for a session, newest
	// first.
	FetchRecent(ctx context.Context, sessionID string, limit int) ([]Record, error)

	// FetchSimilar returns records ranked by decayed similarity, highest
	// first.
	FetchSimilar(ctx context.Context, query SimilarityQuery) ([]ScoredRecord, error)

	// Close releases any underlying resources.
	Close() error
}
