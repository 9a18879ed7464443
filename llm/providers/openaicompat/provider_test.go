package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		ProviderName: "test",
		APIKey:       "test-key",
		BaseURL:      server.URL,
		DefaultModel: "test-model",
	}, zap.NewNop())
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		require.False(t, body.Stream)

		_ = json.NewEncoder(w).Encode(wireResponse{
			ID:    "chatcmpl-1",
			Model: "test-model",
			Choices: []wireChoice{{
				Message:      wireMessage{Role: "assistant", Content: "hello there"},
				FinishReason: "stop",
			}},
		})
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{
			types.NewSystemMessage("you are terse"),
			types.NewUserMessage("hi"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text())
	assert.Equal(t, "test", resp.Provider)
}

func TestCompletionHTTPErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited, true},
		{"unauthorized", http.StatusUnauthorized, types.ErrUnauthorized, false},
		{"gateway timeout", http.StatusGatewayTimeout, types.ErrUpstreamTimeout, true},
		{"bad request", http.StatusBadRequest, types.ErrInvalidRequest, false},
		{"server error", http.StatusInternalServerError, types.ErrUpstreamError, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			_, err := p.Completion(context.Background(), &llm.ChatRequest{
				Messages: []types.Message{types.NewUserMessage("hi")},
			})
			require.Error(t, err)

			var terr *types.Error
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tc.code, terr.Code)
			assert.Equal(t, tc.retryable, terr.Retryable)
			assert.Contains(t, terr.Message, "nope")
		})
	}
}

func TestStream(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"id":"s1","choices":[{"delta":{"content":"hel"}}]}`,
			`data: {"id":"s1","choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
			`data: [DONE]`,
		}
		for _, c := range chunks {
			_, _ = w.Write([]byte(c + "\n\n"))
		}
	})

	ch, err := p.Stream(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	text, err := llm.CollectStream(context.Background(), ch, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestStreamMidStreamError(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: {not json}\n\n"))
	})

	ch, err := p.Stream(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	_, err = llm.CollectStream(context.Background(), ch, nil)
	require.Error(t, err)
}

func TestConnectionRefusedIsRetryable(t *testing.T) {
	t.Parallel()

	p := New(Config{
		ProviderName: "down",
		BaseURL:      "http://127.0.0.1:1", // nothing listens here
		DefaultModel: "m",
	}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}
