// Package embedding provides a unified embedding provider interface with an
// OpenAI-compatible implementation. Embeddings back the episodic memory store
// and the retrieval context assembler.
package embedding

import (
	"context"
	"time"
)

// Request carries the text inputs to embed.
type Request struct {
	Input          []string  `json:"input"`
	Model          string    `json:"model,omitempty"`
	Dimensions     int       `json:"dimensions,omitempty"`
	EncodingFormat string    `json:"encoding_format,omitempty"`
	InputType      InputType `json:"input_type,omitempty"`
}

// InputType specifies what the input is optimized for.
type InputType string

const (
	InputTypeQuery    InputType = "query"
	InputTypeDocument InputType = "document"
)

// Response carries the embeddings for a Request, in input order.
type Response struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Embeddings []Data    `json:"embeddings"`
	Usage      Usage     `json:"usage"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Data is a single embedding result.
type Data struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Usage reports token consumption for an embedding request.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Provider is the unified embedding provider interface.
type Provider interface {
	// Embed generates embeddings for the given inputs.
	Embed(ctx context.Context, req *Request) (*Response, error)

	// EmbedQuery is a convenience method for embedding a single query.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// EmbedDocuments is a convenience method for embedding multiple documents.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)

	// Name returns the provider name.
	Name() string

	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
}
