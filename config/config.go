package config

import (
	"time"

	"github.com/BaSui01/councilflow/types"
)

// Config is the complete councilflow configuration.
type Config struct {
	// Council tunes the deliberation loop.
	Council CouncilConfig `yaml:"council" env:"COUNCIL"`

	// Providers lists the completion endpoints participants may reference.
	Providers []ProviderConfig `yaml:"providers" env:"-"`

	// Judge selects the provider and model used for final synthesis.
	Judge JudgeConfig `yaml:"judge" env:"JUDGE"`

	// Focus configures the advisory topical-relevance scorer.
	Focus FocusConfig `yaml:"focus" env:"FOCUS"`

	// Embedding configures the vector provider for memory and retrieval.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Memory configures the episodic record store.
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Documents configures reference-document ingestion for retrieval.
	Documents DocumentsConfig `yaml:"documents" env:"DOCUMENTS"`

	// Checkpoint selects where per-phase session snapshots go.
	Checkpoint CheckpointConfig `yaml:"checkpoint" env:"CHECKPOINT"`

	// Retry bounds the backoff applied to provider calls.
	Retry RetryConfig `yaml:"retry" env:"RETRY"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Participants is the debate roster. Empty means the built-in personas.
	Participants types.Roster `yaml:"participants" env:"-"`

	// Consciousness assigns the fixed roles of consciousness mode.
	Consciousness ConsciousnessConfig `yaml:"consciousness" env:"-"`
}

// CouncilConfig tunes the deliberation loop.
type CouncilConfig struct {
	Title              string          `yaml:"title" env:"TITLE"`
	MinIterations      int             `yaml:"min_iterations" env:"MIN_ITERATIONS"`
	MaxIterations      int             `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	ConsensusMode      string          `yaml:"consensus_mode" env:"CONSENSUS_MODE"`
	ConsensusThreshold float64         `yaml:"consensus_threshold" env:"CONSENSUS_THRESHOLD"`
	EliminationEnabled bool            `yaml:"elimination_enabled" env:"ELIMINATION_ENABLED"`
	FocusThreshold     float64         `yaml:"focus_threshold" env:"FOCUS_THRESHOLD"`
	HistoryWindow      int             `yaml:"history_window" env:"HISTORY_WINDOW"`
	Retrieval          RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Format selects a structured debate format; empty means freeform.
	Format FormatConfig `yaml:"format" env:"-"`
	// Collaboration switches the session to cooperative framing.
	Collaboration CollaborationConfig `yaml:"collaboration" env:"-"`
}

// FormatConfig names a structured debate format and its cast.
type FormatConfig struct {
	// Type is freeform, oxford, socratic, devils_advocate, or parliamentary.
	Type string `yaml:"type"`
	// Motion is the proposition debated in oxford/parliamentary formats.
	Motion string `yaml:"motion"`
	// Roles maps participant key to format role; empty assigns from roster
	// order.
	Roles map[string]string `yaml:"roles"`
}

// CollaborationConfig tunes collaborative (non-competitive) sessions.
type CollaborationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Strategy  string `yaml:"strategy"`
	Subgroups int    `yaml:"subgroups"`
	Grouping  string `yaml:"grouping"`
}

// RetrievalConfig controls context retrieval for prompts.
type RetrievalConfig struct {
	Enabled       bool    `yaml:"enabled" env:"ENABLED"`
	UseMemory     bool    `yaml:"use_memory" env:"USE_MEMORY"`
	UseDocuments  bool    `yaml:"use_documents" env:"USE_DOCUMENTS"`
	TopK          int     `yaml:"top_k" env:"TOP_K"`
	MinSimilarity float64 `yaml:"min_similarity" env:"MIN_SIMILARITY"`
}

// ProviderConfig describes one OpenAI-compatible completion endpoint.
type ProviderConfig struct {
	// Name is the key participants reference via Participant.Provider.
	Name string `yaml:"name"`
	// APIKey authenticates requests. Usually injected via environment.
	APIKey string `yaml:"api_key"`
	// BaseURL is the endpoint root, e.g. https://api.openai.com.
	BaseURL string `yaml:"base_url"`
	// Model is the default model when a participant leaves theirs empty.
	Model string `yaml:"model"`
	// EndpointPath overrides the completions path when non-empty.
	EndpointPath string `yaml:"endpoint_path"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// RPS caps requests per second; zero disables limiting.
	RPS float64 `yaml:"rps"`
	// Burst is the token-bucket burst size when RPS is set.
	Burst int `yaml:"burst"`
}

// JudgeConfig selects the synthesis provider.
type JudgeConfig struct {
	Provider string `yaml:"provider" env:"PROVIDER"`
	Model    string `yaml:"model" env:"MODEL"`
}

// FocusConfig configures the advisory focus scorer.
type FocusConfig struct {
	Enabled   bool    `yaml:"enabled" env:"ENABLED"`
	Provider  string  `yaml:"provider" env:"PROVIDER"`
	Model     string  `yaml:"model" env:"MODEL"`
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Model      string        `yaml:"model" env:"MODEL"`
	Dimensions int           `yaml:"dimensions" env:"DIMENSIONS"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// MemoryConfig configures the episodic store.
type MemoryConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" env:"BACKEND"`
	// Path is the SQLite database file for the sqlite backend.
	Path string `yaml:"path" env:"PATH"`
	// HalfLife is the recency-decay half-life for retrieval scoring.
	HalfLife time.Duration `yaml:"half_life" env:"HALF_LIFE"`
	// SummaryProvider and SummaryModel drive cross-session background briefs.
	SummaryProvider string `yaml:"summary_provider" env:"SUMMARY_PROVIDER"`
	SummaryModel    string `yaml:"summary_model" env:"SUMMARY_MODEL"`
}

// DocumentsConfig configures reference-document ingestion.
type DocumentsConfig struct {
	Paths          []string `yaml:"paths" env:"PATHS"`
	ChunkSize      int      `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap   int      `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	TokenBudget    int      `yaml:"token_budget" env:"TOKEN_BUDGET"`
	TokenizerModel string   `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
}

// CheckpointConfig selects the checkpoint store.
type CheckpointConfig struct {
	// Backend is "file", "memory" or "redis".
	Backend string `yaml:"backend" env:"BACKEND"`
	// Dir is the artifact directory for the file backend.
	Dir   string      `yaml:"dir" env:"DIR"`
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig configures the redis checkpoint backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// RetryConfig bounds the provider retry backoff.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" env:"MAX_RETRIES"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	Multiplier   float64       `yaml:"multiplier" env:"MULTIPLIER"`
	Jitter       bool          `yaml:"jitter" env:"JITTER"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// ConsciousnessConfig assigns the fixed roles of consciousness mode.
type ConsciousnessConfig struct {
	Moderator string   `yaml:"moderator"`
	Speakers  []string `yaml:"speakers"`
	Critic    string   `yaml:"critic"`
}

// Validate checks the full configuration, returning the first problem found.
func (c *Config) Validate() error {
	if c.Council.MinIterations < 1 {
		return types.NewError(types.ErrConfiguration, "council.min_iterations must be at least 1")
	}
	if c.Council.MaxIterations < c.Council.MinIterations {
		return types.NewErrorf(types.ErrConfiguration,
			"council.max_iterations %d below min_iterations %d",
			c.Council.MaxIterations, c.Council.MinIterations)
	}
	switch types.ConsensusMode(c.Council.ConsensusMode) {
	case types.ConsensusMajority, types.ConsensusSupermajority, types.ConsensusUnanimity:
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown consensus mode %q", c.Council.ConsensusMode)
	}
	if c.Council.ConsensusThreshold < 0 || c.Council.ConsensusThreshold > 1 {
		return types.NewErrorf(types.ErrConfiguration,
			"council.consensus_threshold %v outside [0,1]", c.Council.ConsensusThreshold)
	}
	switch c.Council.Format.Type {
	case "", "freeform", "oxford", "socratic", "devils_advocate", "parliamentary":
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown debate format %q", c.Council.Format.Type)
	}
	structured := c.Council.Format.Type != "" && c.Council.Format.Type != "freeform"
	if structured && c.Council.Collaboration.Enabled {
		return types.NewError(types.ErrConfiguration,
			"council.format and council.collaboration cannot be combined")
	}
	if c.Council.Collaboration.Enabled {
		switch c.Council.Collaboration.Strategy {
		case "", "consensus", "problem_solving", "synthesis", "brainstorming":
		default:
			return types.NewErrorf(types.ErrConfiguration,
				"unknown collaboration strategy %q", c.Council.Collaboration.Strategy)
		}
	}

	if len(c.Providers) == 0 {
		return types.NewError(types.ErrConfiguration, "at least one provider is required")
	}
	names := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return types.NewError(types.ErrConfiguration, "provider name is required")
		}
		if _, dup := names[p.Name]; dup {
			return types.NewErrorf(types.ErrConfiguration, "duplicate provider %q", p.Name)
		}
		names[p.Name] = struct{}{}
	}

	if c.Judge.Provider == "" {
		return types.NewError(types.ErrConfiguration, "judge.provider is required")
	}
	if _, ok := names[c.Judge.Provider]; !ok {
		return types.NewErrorf(types.ErrConfiguration, "judge references unknown provider %q", c.Judge.Provider)
	}
	if c.Focus.Enabled {
		if _, ok := names[c.Focus.Provider]; !ok {
			return types.NewErrorf(types.ErrConfiguration, "focus references unknown provider %q", c.Focus.Provider)
		}
	}

	roster := c.Roster()
	if err := types.ValidateRoster(roster); err != nil {
		return err
	}
	for _, p := range roster {
		if _, ok := names[p.Provider]; !ok {
			return types.NewErrorf(types.ErrConfiguration,
				"participant %q references unknown provider %q", p.Key, p.Provider)
		}
	}

	if c.Memory.Enabled {
		switch c.Memory.Backend {
		case "memory":
		case "sqlite":
			if c.Memory.Path == "" {
				return types.NewError(types.ErrConfiguration, "memory.path is required for the sqlite backend")
			}
		default:
			return types.NewErrorf(types.ErrConfiguration, "unknown memory backend %q", c.Memory.Backend)
		}
		if !c.Embedding.Enabled {
			return types.NewError(types.ErrConfiguration, "memory requires embedding.enabled")
		}
	}
	if c.Embedding.Enabled && c.Embedding.Dimensions < 1 {
		return types.NewError(types.ErrConfiguration, "embedding.dimensions must be positive")
	}

	if c.Documents.ChunkOverlap >= c.Documents.ChunkSize && c.Documents.ChunkSize > 0 {
		return types.NewErrorf(types.ErrConfiguration,
			"documents.chunk_overlap %d must be below chunk_size %d",
			c.Documents.ChunkOverlap, c.Documents.ChunkSize)
	}

	switch c.Checkpoint.Backend {
	case "memory":
	case "file":
		if c.Checkpoint.Dir == "" {
			return types.NewError(types.ErrConfiguration, "checkpoint.dir is required for the file backend")
		}
	case "redis":
		if c.Checkpoint.Redis.Addr == "" {
			return types.NewError(types.ErrConfiguration, "checkpoint.redis.addr is required for the redis backend")
		}
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown checkpoint backend %q", c.Checkpoint.Backend)
	}

	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		return types.NewErrorf(types.ErrConfiguration, "retry.multiplier %v must be at least 1", c.Retry.Multiplier)
	}
	return nil
}

// Roster returns the configured participants, falling back to the built-in
// debate personas when none are configured.
func (c *Config) Roster() types.Roster {
	if len(c.Participants) > 0 {
		return c.Participants
	}
	return DefaultPersonas(c.defaultProviderName())
}

func (c *Config) defaultProviderName() string {
	if len(c.Providers) > 0 {
		return c.Providers[0].Name
	}
	return "openai"
}
