package config

import (
	"time"

	"github.com/BaSui01/councilflow/types"
)

// DefaultConfig returns the configuration used when no file or environment
// overrides apply: one OpenAI provider, the built-in personas, file
// checkpoints under ./sessions and memory disabled.
func DefaultConfig() *Config {
	return &Config{
		Council: CouncilConfig{
			MinIterations:      1,
			MaxIterations:      3,
			ConsensusMode:      string(types.ConsensusMajority),
			FocusThreshold:     0.70,
			HistoryWindow:      12,
			Retrieval: RetrievalConfig{
				TopK:          8,
				MinSimilarity: 0.2,
			},
		},
		Providers: []ProviderConfig{{
			Name:    "openai",
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o",
			Timeout: 120 * time.Second,
		}},
		Judge: JudgeConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		Focus: FocusConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Threshold: 0.70,
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			Timeout:    30 * time.Second,
		},
		Memory: MemoryConfig{
			Backend:  "sqlite",
			Path:     "councilflow.db",
			HalfLife: 7 * 24 * time.Hour,
		},
		Documents: DocumentsConfig{
			ChunkSize:    512,
			ChunkOverlap: 102,
			TokenBudget:  2048,
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Dir:     "sessions",
			Redis: RedisConfig{
				KeyPrefix: "councilflow",
			},
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Metrics: MetricsConfig{
			Namespace: "councilflow",
		},
	}
}
