package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures a Redis-backed checkpoint store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires checkpoints; zero keeps them forever.
	TTL time.Duration
}

// RedisStore persists checkpoints in Redis for deployments where multiple
// processes need to see session state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "councilflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix + "checkpoint:",
		ttl:       cfg.TTL,
		logger:    logger.With(zap.String("component", "checkpoint_store_redis")),
	}, nil
}

func (s *RedisStore) checkpointKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "sessions"
}

// Save stores the checkpoint and indexes the session ID.
func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.checkpointKey(cp.SessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(cp.CreatedAt.UnixNano()),
		Member: cp.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("session_id", cp.SessionID),
		zap.String("phase", cp.Phase),
		zap.Int("sequence", cp.Sequence))
	return nil
}

// LoadLatest returns the session's checkpoint, or ErrNotFound.
func (s *RedisStore) LoadLatest(ctx context.Context, sessionID string) (*Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns session IDs ordered by checkpoint recency, oldest first.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return ids, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
