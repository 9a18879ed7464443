package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/councilflow/types"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.Council.MinIterations)
	assert.Equal(t, 3, cfg.Council.MaxIterations)
	assert.Equal(t, string(types.ConsensusMajority), cfg.Council.ConsensusMode)
	assert.Equal(t, "file", cfg.Checkpoint.Backend)
	assert.False(t, cfg.Memory.Enabled)

	// No participants configured means the built-in personas, bound to the
	// first provider.
	roster := cfg.Roster()
	require.NoError(t, types.ValidateRoster(roster))
	for _, p := range roster {
		assert.Equal(t, "openai", p.Provider)
	}
}

func TestLoaderLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
council:
  max_iterations: 5
  consensus_mode: supermajority
providers:
  - name: local
    base_url: http://localhost:8080
    model: llama-3
judge:
  provider: local
  model: llama-3
checkpoint:
  backend: memory
retry:
  initial_delay: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	// Environment wins over the file, the file over the defaults.
	t.Setenv("COUNCILFLOW_COUNCIL_MAX_ITERATIONS", "7")
	t.Setenv("COUNCILFLOW_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Council.MaxIterations)
	assert.Equal(t, "supermajority", cfg.Council.ConsensusMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "local", cfg.Providers[0].Name)
	assert.Equal(t, "local", cfg.Judge.Provider)

	// Defaults untouched by file or environment survive.
	assert.Equal(t, 1, cfg.Council.MinIterations)
	assert.True(t, cfg.Retry.Jitter)
}

func TestLoaderMissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Council.MaxIterations)
}

func TestLoaderRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("council: [not a mapping"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.CodeOf(err))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"min iterations below one", func(cfg *Config) { cfg.Council.MinIterations = 0 }},
		{"max below min", func(cfg *Config) { cfg.Council.MinIterations = 4 }},
		{"unknown consensus mode", func(cfg *Config) { cfg.Council.ConsensusMode = "mostly" }},
		{"threshold out of range", func(cfg *Config) { cfg.Council.ConsensusThreshold = 1.2 }},
		{"no providers", func(cfg *Config) { cfg.Providers = nil }},
		{"duplicate providers", func(cfg *Config) { cfg.Providers = append(cfg.Providers, cfg.Providers[0]) }},
		{"judge unknown provider", func(cfg *Config) { cfg.Judge.Provider = "missing" }},
		{"focus unknown provider", func(cfg *Config) {
			cfg.Focus.Enabled = true
			cfg.Focus.Provider = "missing"
		}},
		{"participant unknown provider", func(cfg *Config) {
			cfg.Participants = DefaultPersonas("missing")
		}},
		{"single participant", func(cfg *Config) {
			cfg.Participants = DefaultPersonas("openai")[:1]
		}},
		{"memory without embedding", func(cfg *Config) { cfg.Memory.Enabled = true }},
		{"unknown memory backend", func(cfg *Config) {
			cfg.Memory.Enabled = true
			cfg.Embedding.Enabled = true
			cfg.Memory.Backend = "tape"
		}},
		{"sqlite without path", func(cfg *Config) {
			cfg.Memory.Enabled = true
			cfg.Embedding.Enabled = true
			cfg.Memory.Path = ""
		}},
		{"embedding without dimensions", func(cfg *Config) {
			cfg.Embedding.Enabled = true
			cfg.Embedding.Dimensions = 0
		}},
		{"chunk overlap above size", func(cfg *Config) {
			cfg.Documents.ChunkOverlap = cfg.Documents.ChunkSize
		}},
		{"unknown checkpoint backend", func(cfg *Config) { cfg.Checkpoint.Backend = "tape" }},
		{"file checkpoint without dir", func(cfg *Config) { cfg.Checkpoint.Dir = "" }},
		{"redis checkpoint without addr", func(cfg *Config) { cfg.Checkpoint.Backend = "redis" }},
		{"retry multiplier below one", func(cfg *Config) { cfg.Retry.Multiplier = 0.5 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
		})
	}
}

func TestConsciousnessPersonasCoverDefaultRoles(t *testing.T) {
	t.Parallel()

	roster := ConsciousnessPersonas("openai")
	require.NoError(t, types.ValidateRoster(roster))

	roles := DefaultConsciousnessRoles()
	_, ok := roster.Find(roles.Moderator)
	assert.True(t, ok)
	_, ok = roster.Find(roles.Critic)
	assert.True(t, ok)
	require.Len(t, roles.Speakers, 2)
	for _, key := range roles.Speakers {
		_, ok := roster.Find(key)
		assert.True(t, ok)
	}
}
