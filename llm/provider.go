package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/councilflow/types"
)

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	TopP        float32         `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// ChatUsage reports token accounting for one request.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Message      types.Message `json:"message"`
}

// ChatResponse is a provider-agnostic chat completion response.
type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Text returns the first choice's content, trimmed.
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// StreamChunk is one incremental piece of a streaming completion. Chunks for
// one request arrive in generation order and concatenate to the same text a
// non-streaming call would return.
type StreamChunk struct {
	ID           string       `json:"id,omitempty"`
	Provider     string       `json:"provider,omitempty"`
	Model        string       `json:"model,omitempty"`
	Delta        string       `json:"delta"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Err          *types.Error `json:"error,omitempty"`
}

// Provider is the unified completion provider interface. Implementations
// must be safe for concurrent use: the orchestrator dispatches independent
// per-participant calls in parallel within a phase.
type Provider interface {
	// Completion performs a synchronous chat request.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream performs a streaming chat request. The returned channel is
	// closed when the stream ends or ctx is cancelled.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// CollectStream drains a stream into the concatenated text, invoking onChunk
// for every delta in order. onChunk may be nil.
func CollectStream(ctx context.Context, ch <-chan StreamChunk, onChunk func(delta string)) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return strings.TrimSpace(sb.String()), nil
			}
			if chunk.Err != nil {
				return sb.String(), chunk.Err
			}
			if chunk.Delta != "" {
				sb.WriteString(chunk.Delta)
				if onChunk != nil {
					onChunk(chunk.Delta)
				}
			}
		}
	}
}

// MapHTTPError converts an upstream HTTP status into a structured provider
// error with retryability aligned to the status class.
func MapHTTPError(status int, message, provider string) *types.Error {
	code := types.ErrUpstreamError
	retryable := status >= 500
	switch {
	case status == http.StatusTooManyRequests:
		code = types.ErrRateLimited
		retryable = true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = types.ErrUnauthorized
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = types.ErrUpstreamTimeout
		retryable = true
	case status >= 400 && status < 500:
		code = types.ErrInvalidRequest
	}
	return types.NewError(code, message).
		WithHTTPStatus(status).
		WithRetryable(retryable).
		WithProvider(provider)
}
