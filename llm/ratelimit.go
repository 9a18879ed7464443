package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token-bucket limiter so a
// burst of concurrent participant calls cannot exceed the upstream quota.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider caps calls at rps requests per second with the
// given burst. A rps of zero or less disables limiting.
func NewRateLimitedProvider(inner Provider, rps float64, burst int) *RateLimitedProvider {
	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &RateLimitedProvider{inner: inner, limiter: limiter}
}

func (p *RateLimitedProvider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Completion implements Provider.
func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Completion(ctx, req)
}

// Stream implements Provider.
func (p *RateLimitedProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Stream(ctx, req)
}

// Name implements Provider.
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }
