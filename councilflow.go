// Package councilflow provides a top-level convenience entry point for
// running debate councils with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/councilflow"
//
//	eng, err := councilflow.New(councilflow.WithOpenAI("gpt-4o"))
//	eng, err := councilflow.New(councilflow.WithOllama("llama3"))
//	eng, err := councilflow.New(councilflow.WithProvider("custom", myProvider))
//
// The resulting engine uses the four default personas, majority consensus,
// and in-memory checkpoints. Anything beyond that — persistent sessions,
// episodic memory, document retrieval — is wired explicitly through
// [council.NewEngine]; see the examples directory.
package councilflow

import (
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/config"
	"github.com/BaSui01/councilflow/council"
	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/providers/openaicompat"
	"github.com/BaSui01/councilflow/persistence"
	"github.com/BaSui01/councilflow/types"
)

// Option configures the engine created by [New].
type Option func(*builder)

type builder struct {
	cfg          council.Config
	roster       types.Roster
	providerName string
	provider     llm.Provider
	logger       *zap.Logger
	onToken      func(participantKey, delta string)
}

// New creates a [council.Engine] with minimal configuration. A provider must
// be specified via [WithOpenAI], [WithOllama], or [WithProvider].
func New(opts ...Option) (*council.Engine, error) {
	b := builder{cfg: council.DefaultConfig()}
	for _, opt := range opts {
		opt(&b)
	}
	if b.provider == nil {
		return nil, types.NewError(types.ErrConfiguration, "a provider is required: use WithOpenAI, WithOllama, or WithProvider")
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.roster == nil {
		b.roster = config.DefaultPersonas(b.providerName)
	}
	return council.NewEngine(b.cfg, b.roster, council.Dependencies{
		Providers:   map[string]llm.Provider{b.providerName: b.provider},
		Judge:       b.provider,
		Checkpoints: persistence.NewMemoryStore(),
		Logger:      b.logger,
		OnToken:     b.onToken,
	})
}

// WithProvider sets a pre-built LLM provider under the given name. Every
// participant in the roster must reference this name.
func WithProvider(name string, p llm.Provider) Option {
	return func(b *builder) {
		b.providerName = name
		b.provider = p
	}
}

// WithOpenAI creates an OpenAI provider. API key from OPENAI_API_KEY env.
func WithOpenAI(model string) Option {
	return func(b *builder) {
		b.providerName = "openai"
		b.provider = openaicompat.New(openaicompat.Config{
			ProviderName: "openai",
			APIKey:       os.Getenv("OPENAI_API_KEY"),
			DefaultModel: model,
		}, b.logger)
	}
}

// WithOllama creates a provider against a local Ollama endpoint.
func WithOllama(model string) Option {
	return func(b *builder) {
		b.providerName = "ollama"
		b.provider = openaicompat.New(openaicompat.Config{
			ProviderName: "ollama",
			BaseURL:      "http://localhost:11434",
			DefaultModel: model,
		}, b.logger)
	}
}

// WithTitle sets the deliberation title used in prompts and session IDs.
func WithTitle(title string) Option {
	return func(b *builder) { b.cfg.Title = title }
}

// WithRoster replaces the default personas.
func WithRoster(roster types.Roster) Option {
	return func(b *builder) { b.roster = roster }
}

// WithConsensus sets the consensus mode and threshold. A zero threshold
// keeps the mode's default.
func WithConsensus(mode types.ConsensusMode, threshold float64) Option {
	return func(b *builder) {
		b.cfg.ConsensusMode = mode
		b.cfg.ConsensusThreshold = threshold
	}
}

// WithIterations bounds the argument rounds.
func WithIterations(min, max int) Option {
	return func(b *builder) {
		b.cfg.MinIterations = min
		b.cfg.MaxIterations = max
	}
}

// WithElimination enables roster elimination between rounds.
func WithElimination() Option {
	return func(b *builder) { b.cfg.EliminationEnabled = true }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithOnToken streams argument tokens to fn as they are generated.
func WithOnToken(fn func(participantKey, delta string)) Option {
	return func(b *builder) { b.onToken = fn }
}
