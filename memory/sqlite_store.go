package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/councilflow/types"
)

// recordRow is the GORM model for a persisted memory record. The embedding
// is stored as a JSON array since SQLite has no native vector type.
type recordRow struct {
	ID             string `gorm:"primaryKey"`
	SessionID      string `gorm:"index"`
	Kind           string
	ParticipantKey string
	Round          int
	Content        string
	Embedding      string
	CreatedAt      time.Time `gorm:"index"`
}

func (recordRow) TableName() string { return "memory_records" }

// SQLiteStore persists episodic records in a SQLite database via GORM.
// Similarity scoring happens in process after a session-scoped scan, which
// is adequate for the per-session record counts a deliberation produces.
type SQLiteStore struct {
	db         *gorm.DB
	dimensions int
	halfLife   time.Duration
	logger     *zap.Logger
}

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file path; ":memory:" works for tests.
	Path string
	// Dimensions is the required embedding length.
	Dimensions int
	// HalfLife controls read-time decay. <= 0 uses DefaultHalfLife.
	HalfLife time.Duration
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed episodic store.
func NewSQLiteStore(cfg SQLiteConfig, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dimensions <= 0 {
		return nil, types.NewError(types.ErrConfiguration, "embedding dimensions must be positive")
	}
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultHalfLife
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &SQLiteStore{
		db:         db,
		dimensions: cfg.Dimensions,
		halfLife:   cfg.HalfLife,
		logger:     logger.With(zap.String("component", "memory_store_sqlite")),
	}, nil
}

// Record appends a memory entry.
func (s *SQLiteStore) Record(ctx context.Context, rec *Record) error {
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

	encoded, err := json.Marshal(rec.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	row := recordRow{
		ID:             rec.ID,
		SessionID:      rec.SessionID,
		Kind:           string(rec.Kind),
		ParticipantKey: rec.ParticipantKey,
		Round:          rec.Round,
		Content:        rec.Content,
		Embedding:      string(encoded),
		CreatedAt:      rec.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	s.logger.Debug("memory record appended",
		zap.String("id", rec.ID),
		zap.String("session_id", rec.SessionID),
		zap.String("kind", string(rec.Kind)))
	return nil
}

// FetchRecent returns the most recent records for a session, newest first.
func (s *SQLiteStore) FetchRecent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	q := s.db.WithContext(ctx).Model(&recordRow{}).Order("created_at DESC")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []recordRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return decodeRows(rows)
}

// FetchSimilar returns records ranked by decayed similarity.
func (s *SQLiteStore) FetchSimilar(ctx context.Context, query SimilarityQuery) ([]ScoredRecord, error) {
	if len(query.Embedding) != s.dimensions {
		return nil, types.NewErrorf(types.ErrConfiguration,
			"query dimension mismatch: got %d, store requires %d", len(query.Embedding), s.dimensions)
	}

	q := s.db.WithContext(ctx).Model(&recordRow{})
	if query.SessionID != "" {
		q = q.Where("session_id = ?", query.SessionID)
	}
	var rows []recordRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	records, err := decodeRows(rows)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(records, query, s.halfLife), nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decodeRows(rows []recordRow) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var embedding []float64
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for record %s: %w", row.ID, err)
		}
		records = append(records, Record{
			ID:             row.ID,
			SessionID:      row.SessionID,
			Kind:           RecordKind(row.Kind),
			ParticipantKey: row.ParticipantKey,
			Round:          row.Round,
			Content:        row.Content,
			Embedding:      embedding,
			CreatedAt:      row.CreatedAt,
		})
	}
	return records, nil
}
