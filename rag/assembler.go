package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/memory"
)

// ItemSource identifies where a context item came from.
type ItemSource string

const (
	SourceMemory   ItemSource = "memory"
	SourceDocument ItemSource = "document"
)

// Item is one scored piece of retrieved context.
type Item struct {
	Source  ItemSource `json:"source"`
	Label   string     `json:"label"`
	Content string     `json:"content"`
	Score   float64    `json:"score"`
	Tokens  int        `json:"tokens"`
}

// Context is the assembled retrieval context for one prompt.
type Context struct {
	Items       []Item `json:"items"`
	TotalTokens int    `json:"total_tokens"`
	// Truncated reports whether any items were dropped to fit the budget.
	Truncated bool `json:"truncated"`
}

// Render formats the context as a prompt section. Empty contexts render to
// an empty string.
func (c *Context) Render() string {
	if len(c.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant context:\n")
	for _, item := range c.Items {
		fmt.Fprintf(&sb, "- [%s] %s\n", item.Label, item.Content)
	}
	return sb.String()
}

// AssemblerConfig tunes context assembly.
type AssemblerConfig struct {
	// TopK caps the number of memory hits fetched per query.
	TopK int
	// MinSimilarity excludes weakly related memory hits.
	MinSimilarity float64
	// TokenBudget caps the total tokens of the assembled context.
	TokenBudget int
}

// DefaultAssemblerConfig returns sensible production defaults.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{TopK: 8, MinSimilarity: 0.2, TokenBudget: 2048}
}

// Assembler builds prompt context from episodic memory and pre-embedded
// document chunks.
type Assembler struct {
	cfg       AssemblerConfig
	store     memory.Store
	embedder  embedding.Provider
	tokenizer Tokenizer
	documents []Chunk
	logger    *zap.Logger
}

// NewAssembler creates a context assembler. store may be nil when the
// session runs without episodic memory; documents may be empty.
func NewAssembler(cfg AssemblerConfig, store memory.Store, embedder embedding.Provider, tokenizer Tokenizer, documents []Chunk, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultAssemblerConfig().TopK
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultAssemblerConfig().TokenBudget
	}
	return &Assembler{
		cfg:       cfg,
		store:     store,
		embedder:  embedder,
		tokenizer: tokenizer,
		documents: documents,
		logger:    logger.With(zap.String("component", "rag_assembler")),
	}
}

// Assemble embeds the query once, gathers memory hits and document chunk
// scores, merges them by score, and truncates to the token budget dropping
// the lowest-scored items first.
func (a *Assembler) Assemble(ctx context.Context, sessionID, query string) (*Context, error) {
	if a.store == nil && len(a.documents) == 0 {
		return &Context{}, nil
	}

	queryVec, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var items []Item
	if a.store != nil {
		hits, err := a.store.FetchSimilar(ctx, memory.SimilarityQuery{
			SessionID:     sessionID,
			Embedding:     queryVec,
			Limit:         a.cfg.TopK,
			MinSimilarity: a.cfg.MinSimilarity,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch similar memories: %w", err)
		}
		for _, hit := range hits {
			items = append(items, Item{
				Source:  SourceMemory,
				Label:   fmt.Sprintf("memory/%s", hit.Record.Kind),
				Content: hit.Record.Content,
				Score:   hit.Score,
				Tokens:  a.tokenizer.CountTokens(hit.Record.Content),
			})
		}
	}

	for _, chunk := range a.documents {
		sim := memory.CosineSimilarity(queryVec, chunk.Embedding)
		if sim < a.cfg.MinSimilarity {
			continue
		}
		items = append(items, Item{
			Source:  SourceDocument,
			Label:   fmt.Sprintf("doc/%s#%d", chunk.Source, chunk.Index),
			Content: chunk.Content,
			Score:   sim,
			Tokens:  a.tokenizer.CountTokens(chunk.Content),
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	// Items are dropped from the low-score end: once the budget is hit,
	// everything ranked below the boundary goes too.
	out := &Context{}
	for _, item := range items {
		if out.TotalTokens+item.Tokens > a.cfg.TokenBudget {
			out.Truncated = true
			break
		}
		out.Items = append(out.Items, item)
		out.TotalTokens += item.Tokens
	}

	a.logger.Debug("context assembled",
		zap.String("session_id", sessionID),
		zap.Int("items", len(out.Items)),
		zap.Int("tokens", out.TotalTokens),
		zap.Bool("truncated", out.Truncated))
	return out, nil
}
