package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/councilflow/types"
)

func TestOpenAIEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"alpha", "beta"}, req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "text-embedding-3-small",
			"data": []map[string]any{
				{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
				{"index": 1, "embedding": []float64{0.4, 0.5, 0.6}},
			},
			"usage": map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: server.URL, Dimensions: 3})

	vecs, err := p.EmbedDocuments(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vecs[0])
	assert.Equal(t, 3, p.Dimensions())
}

func TestOpenAIEmbedQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "m",
			"data":  []map[string]any{{"index": 0, "embedding": []float64{1, 0}}},
		})
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL})
	vec, err := p.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
}

func TestOpenAIEmbedRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL})
	_, err := p.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)

	var terr *types.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, types.ErrRateLimited, terr.Code)
	assert.True(t, terr.Retryable)
}
