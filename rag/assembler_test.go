package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/memory"
)

type fixedEmbedder struct {
	vec []float64
}

func (f *fixedEmbedder) Embed(ctx context.Context, req *embedding.Request) (*embedding.Response, error) {
	data := make([]embedding.Data, len(req.Input))
	for i := range req.Input {
		data[i] = embedding.Data{Index: i, Embedding: f.vec}
	}
	return &embedding.Response{Provider: f.Name(), Embeddings: data}, nil
}

func (f *fixedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float64, error) {
	out := make([][]float64, len(docs))
	for i := range docs {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fixedEmbedder) Name() string    { return "fixed" }
func (f *fixedEmbedder) Dimensions() int { return len(f.vec) }

func TestAssembleMergesMemoryAndDocuments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore(2, 0, zap.NewNop())
	require.NoError(t, store.Record(ctx, &memory.Record{
		SessionID: "s1",
		Kind:      memory.KindDecision,
		Content:   "previously the council favored caching",
		Embedding: []float64{1, 0},
		CreatedAt: time.Now(),
	}))

	docs := []Chunk{
		{Source: "notes.md", Index: 0, Content: "doc chunk about caching", Embedding: []float64{0.9, 0.1}},
		{Source: "notes.md", Index: 1, Content: "unrelated chunk", Embedding: []float64{0, 1}},
	}

	a := NewAssembler(AssemblerConfig{TopK: 5, MinSimilarity: 0.3, TokenBudget: 1000},
		store, &fixedEmbedder{vec: []float64{1, 0}}, EstimatorTokenizer{}, docs, zap.NewNop())

	out, err := a.Assemble(ctx, "s1", "should we cache?")
	require.NoError(t, err)
	require.Len(t, out.Items, 2, "orthogonal chunk filtered by min similarity")
	assert.False(t, out.Truncated)

	sources := []ItemSource{out.Items[0].Source, out.Items[1].Source}
	assert.Contains(t, sources, SourceMemory)
	assert.Contains(t, sources, SourceDocument)
	assert.GreaterOrEqual(t, out.Items[0].Score, out.Items[1].Score)

	rendered := out.Render()
	assert.Contains(t, rendered, "previously the council favored caching")
	assert.Contains(t, rendered, "doc/notes.md#0")
}

func TestAssembleTruncatesLowestScoredFirst(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("word ", 100) // ~125 estimated tokens
	docs := []Chunk{
		{Source: "a.md", Index: 0, Content: big, Embedding: []float64{1, 0}},
		{Source: "b.md", Index: 0, Content: big, Embedding: []float64{0.8, 0.6}},
		{Source: "c.md", Index: 0, Content: big, Embedding: []float64{0.6, 0.8}},
	}

	a := NewAssembler(AssemblerConfig{TopK: 5, TokenBudget: 260},
		nil, &fixedEmbedder{vec: []float64{1, 0}}, EstimatorTokenizer{}, docs, zap.NewNop())

	out, err := a.Assemble(context.Background(), "s1", "q")
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.True(t, out.Truncated)
	assert.Equal(t, "doc/a.md#0", out.Items[0].Label)
	assert.Equal(t, "doc/b.md#0", out.Items[1].Label)
	assert.LessOrEqual(t, out.TotalTokens, 260)
}

func TestAssembleEmpty(t *testing.T) {
	t.Parallel()

	a := NewAssembler(AssemblerConfig{}, nil, &fixedEmbedder{vec: []float64{1, 0}}, EstimatorTokenizer{}, nil, zap.NewNop())
	out, err := a.Assemble(context.Background(), "s1", "q")
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, "", out.Render())
}
