package main

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/config"
	"github.com/BaSui01/councilflow/council"
	"github.com/BaSui01/councilflow/focus"
	"github.com/BaSui01/councilflow/internal/metrics"
	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/llm/providers/openaicompat"
	"github.com/BaSui01/councilflow/llm/retry"
	"github.com/BaSui01/councilflow/memory"
	"github.com/BaSui01/councilflow/persistence"
	"github.com/BaSui01/councilflow/rag"
	"github.com/BaSui01/councilflow/types"
)

// App is one fully wired deliberation engine plus the resources it owns.
type App struct {
	Engine *council.Engine

	checkpointDir string
	closers       []func() error
}

// Close releases stores in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// TranscriptPath returns the session's artifact directory for the file
// checkpoint backend, empty otherwise.
func (a *App) TranscriptPath(sessionID string) string {
	if a.checkpointDir == "" {
		return ""
	}
	return filepath.Join(a.checkpointDir, sessionID)
}

// buildApp wires providers, memory, retrieval, persistence and metrics into
// a council engine per the loaded configuration.
func buildApp(ctx context.Context, cfg *config.Config, roster types.Roster, logger *zap.Logger, onToken func(participantKey, delta string)) (*App, error) {
	app := &App{}

	providers := make(map[string]llm.Provider, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		var p llm.Provider = openaicompat.New(openaicompat.Config{
			ProviderName: pc.Name,
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
			EndpointPath: pc.EndpointPath,
		}, logger)
		if pc.RPS > 0 {
			p = llm.NewRateLimitedProvider(p, pc.RPS, pc.Burst)
		}
		providers[pc.Name] = p
	}

	var embedder embedding.Provider
	if cfg.Embedding.Enabled {
		embedder = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
		})
	}

	var memStore memory.Store
	if cfg.Memory.Enabled {
		switch cfg.Memory.Backend {
		case "sqlite":
			store, err := memory.NewSQLiteStore(memory.SQLiteConfig{
				Path:       cfg.Memory.Path,
				Dimensions: cfg.Embedding.Dimensions,
				HalfLife:   cfg.Memory.HalfLife,
			}, logger)
			if err != nil {
				app.Close()
				return nil, err
			}
			memStore = store
		default:
			memStore = memory.NewInMemoryStore(cfg.Embedding.Dimensions, cfg.Memory.HalfLife, logger)
		}
		app.closers = append(app.closers, memStore.Close)
	}

	var summarizer *memory.Summarizer
	if memStore != nil && cfg.Memory.SummaryProvider != "" {
		if sp, ok := providers[cfg.Memory.SummaryProvider]; ok {
			summarizer = memory.NewSummarizer(memStore, sp, embedder, cfg.Memory.SummaryModel, logger)
		}
	}

	var assembler *rag.Assembler
	if cfg.Council.Retrieval.Enabled && embedder != nil {
		tokenizer := rag.NewTiktokenTokenizer(cfg.Documents.TokenizerModel, logger)

		var chunks []rag.Chunk
		if cfg.Council.Retrieval.UseDocuments && len(cfg.Documents.Paths) > 0 {
			loader := rag.NewDocumentLoader(rag.ChunkingConfig{
				ChunkSize:    cfg.Documents.ChunkSize,
				ChunkOverlap: cfg.Documents.ChunkOverlap,
			}, tokenizer, embedder, logger)
			loaded, err := loader.LoadPaths(ctx, cfg.Documents.Paths)
			if err != nil {
				app.Close()
				return nil, err
			}
			chunks = loaded
		}

		ragStore := memStore
		if !cfg.Council.Retrieval.UseMemory {
			ragStore = nil
		}
		assembler = rag.NewAssembler(rag.AssemblerConfig{
			TopK:          cfg.Council.Retrieval.TopK,
			MinSimilarity: cfg.Council.Retrieval.MinSimilarity,
			TokenBudget:   cfg.Documents.TokenBudget,
		}, ragStore, embedder, tokenizer, chunks, logger)
	}

	checkpoints, err := buildCheckpointStore(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, checkpoints.Close)
	if cfg.Checkpoint.Backend == "file" {
		app.checkpointDir = cfg.Checkpoint.Dir
	}

	var scorer *focus.Scorer
	if cfg.Focus.Enabled {
		scorer = focus.NewScorer(focus.Config{
			Model:     cfg.Focus.Model,
			Threshold: cfg.Focus.Threshold,
		}, providers[cfg.Focus.Provider], logger)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	}

	engine, err := council.NewEngine(council.Config{
		Title:              cfg.Council.Title,
		MinIterations:      cfg.Council.MinIterations,
		MaxIterations:      cfg.Council.MaxIterations,
		ConsensusMode:      types.ConsensusMode(cfg.Council.ConsensusMode),
		ConsensusThreshold: cfg.Council.ConsensusThreshold,
		EliminationEnabled: cfg.Council.EliminationEnabled,
		FocusThreshold:     cfg.Council.FocusThreshold,
		HistoryWindow:      cfg.Council.HistoryWindow,
		Retrieval: council.RetrievalConfig{
			Enabled:       cfg.Council.Retrieval.Enabled,
			UseMemory:     cfg.Council.Retrieval.UseMemory,
			UseDocuments:  cfg.Council.Retrieval.UseDocuments,
			TopK:          cfg.Council.Retrieval.TopK,
			MinSimilarity: cfg.Council.Retrieval.MinSimilarity,
		},
		Format: council.FormatConfig{
			Format: council.DebateFormat(cfg.Council.Format.Type),
			Motion: cfg.Council.Format.Motion,
			Roles:  cfg.Council.Format.Roles,
		},
		Collaboration: council.CollaborationConfig{
			Enabled:   cfg.Council.Collaboration.Enabled,
			Strategy:  council.CollaborationStrategy(cfg.Council.Collaboration.Strategy),
			Subgroups: cfg.Council.Collaboration.Subgroups,
			Grouping:  cfg.Council.Collaboration.Grouping,
		},
	}, roster, council.Dependencies{
		Providers:   providers,
		Judge:       providers[cfg.Judge.Provider],
		JudgeModel:  cfg.Judge.Model,
		Scorer:      scorer,
		Memory:      memStore,
		Embedder:    embedder,
		Assembler:   assembler,
		Summarizer:  summarizer,
		Checkpoints: checkpoints,
		Retryer: retry.NewBackoffRetryer(&retry.Policy{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			Jitter:       cfg.Retry.Jitter,
		}, logger),
		Metrics: collector,
		Logger:  logger,
		OnToken: onToken,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = engine
	return app, nil
}

func buildCheckpointStore(cfg *config.Config, logger *zap.Logger) (persistence.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "memory":
		return persistence.NewMemoryStore(), nil
	case "redis":
		return persistence.NewRedisStore(persistence.RedisConfig{
			Addr:      cfg.Checkpoint.Redis.Addr,
			Password:  cfg.Checkpoint.Redis.Password,
			DB:        cfg.Checkpoint.Redis.DB,
			KeyPrefix: cfg.Checkpoint.Redis.KeyPrefix,
			TTL:       cfg.Checkpoint.Redis.TTL,
		}, logger)
	default:
		return persistence.NewFileStore(cfg.Checkpoint.Dir, logger)
	}
}
