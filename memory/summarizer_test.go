package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/types"
)

type stubCompletion struct {
	text string
}

func (s *stubCompletion) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{
		Message: types.NewAssistantMessage(s.text),
	}}}, nil
}

func (s *stubCompletion) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func (s *stubCompletion) Name() string { return "stub" }

type stubEmbedder struct {
	vec []float64
}

func (s *stubEmbedder) Embed(ctx context.Context, req *embedding.Request) (*embedding.Response, error) {
	data := make([]embedding.Data, len(req.Input))
	for i := range req.Input {
		data[i] = embedding.Data{Index: i, Embedding: s.vec}
	}
	return &embedding.Response{Provider: s.Name(), Embeddings: data}, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return s.vec, nil
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float64, error) {
	out := make([][]float64, len(docs))
	for i := range docs {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubEmbedder) Name() string    { return "stub-embedding" }
func (s *stubEmbedder) Dimensions() int { return len(s.vec) }

func TestSummarize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore(3, 0, zap.NewNop())
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, &Record{
			SessionID: "s1",
			Kind:      KindArgument,
			Round:     i + 1,
			Content:   "argument text",
			Embedding: []float64{1, 0, 0},
			CreatedAt: time.Date(2026, 8, 1, 0, i, 0, 0, time.UTC),
		}))
	}

	sum := NewSummarizer(store,
		&stubCompletion{text: "the council leans toward option A"},
		&stubEmbedder{vec: []float64{0.5, 0.5, 0}},
		"test-model", zap.NewNop())

	rec, err := sum.Summarize(ctx, "s1", 10)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, KindSummary, rec.Kind)
	assert.Equal(t, "the council leans toward option A", rec.Content)

	recent, err := store.FetchRecent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 4, "summary appended alongside originals")
}

func TestSummarizeEmptySession(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(3, 0, zap.NewNop())
	sum := NewSummarizer(store, &stubCompletion{text: "x"}, &stubEmbedder{vec: []float64{1, 0, 0}}, "m", zap.NewNop())

	rec, err := sum.Summarize(context.Background(), "empty", 10)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
