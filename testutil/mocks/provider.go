// Package mocks provides scripted provider doubles shared by tests across
// packages.
package mocks

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/types"
)

// Response scripts one Completion result.
type Response struct {
	Text string
	Err  error
}

// ScriptFunc computes a response from the request. Takes precedence over the
// queued Responses when set.
type ScriptFunc func(req *llm.ChatRequest) Response

// ChatProvider is a scripted llm.Provider. Responses are consumed in order;
// when the script runs out the last response repeats.
type ChatProvider struct {
	mu        sync.Mutex
	name      string
	Responses []Response
	Script    ScriptFunc
	Calls     []*llm.ChatRequest
	idx       int
}

// NewChatProvider creates a scripted chat provider.
func NewChatProvider(name string, responses ...Response) *ChatProvider {
	return &ChatProvider{name: name, Responses: responses}
}

// Completion returns the next scripted response.
func (p *ChatProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	var resp Response
	switch {
	case p.Script != nil:
		resp = p.Script(req)
	case len(p.Responses) == 0:
		resp = Response{Err: fmt.Errorf("no scripted responses for %s", p.name)}
	default:
		resp = p.Responses[p.idx]
		if p.idx < len(p.Responses)-1 {
			p.idx++
		}
	}
	p.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	return &llm.ChatResponse{
		Provider: p.name,
		Choices: []llm.ChatChoice{{
			Message:      types.NewAssistantMessage(resp.Text),
			FinishReason: "stop",
		}},
	}, nil
}

// Stream replays the next scripted response as a single chunk.
func (p *ChatProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	resp, err := p.Completion(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 1)
	ch <- llm.StreamChunk{Provider: p.name, Delta: resp.Text(), FinishReason: "stop"}
	close(ch)
	return ch, nil
}

// Name returns the provider name.
func (p *ChatProvider) Name() string { return p.name }

// CallCount returns how many Completion calls the provider has seen.
func (p *ChatProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Embedder is a deterministic embedding.Provider that hashes text into a
// fixed-dimension vector. Equal inputs get equal embeddings.
type Embedder struct {
	Dim int
}

// NewEmbedder creates a deterministic embedder of the given dimensionality.
func NewEmbedder(dim int) *Embedder { return &Embedder{Dim: dim} }

// Embed hashes each input into a vector.
func (e *Embedder) Embed(ctx context.Context, req *embedding.Request) (*embedding.Response, error) {
	data := make([]embedding.Data, len(req.Input))
	for i, text := range req.Input {
		data[i] = embedding.Data{Index: i, Embedding: e.vector(text)}
	}
	return &embedding.Response{Provider: e.Name(), Embeddings: data}, nil
}

// EmbedQuery hashes a single query into a vector.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return e.vector(query), nil
}

// EmbedDocuments hashes each document into a vector.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float64, error) {
	out := make([][]float64, len(docs))
	for i, d := range docs {
		out[i] = e.vector(d)
	}
	return out, nil
}

// Name returns the provider name.
func (e *Embedder) Name() string { return "mock-embedding" }

// Dimensions returns the vector dimensionality.
func (e *Embedder) Dimensions() int { return e.Dim }

func (e *Embedder) vector(text string) []float64 {
	vec := make([]float64, e.Dim)
	if e.Dim == 0 {
		return vec
	}
	var h uint64 = 14695981039346656037
	for _, b := range []byte(text) {
		h ^= uint64(b)
		h *= 1099511628211
		vec[h%uint64(e.Dim)] += 1
	}
	// normalize so cosine similarity behaves
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
