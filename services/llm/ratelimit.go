package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps an LLMClient with a token-bucket limiter so a
// burst of section drafts cannot exhaust a provider quota. Generate blocks
// until a token is available or the context is done.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient allows rps requests per second with the given burst.
func NewRateLimitedClient(inner LLMClient, rps float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Generate implements the LLMClient interface
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.inner.Generate(ctx, prompt, params)
}

// RateLimitedEmbedder applies the same token-bucket policy to an
// EmbeddingProvider. A batch call consumes a single token since it maps to
// one upstream request.
type RateLimitedEmbedder struct {
	inner   EmbeddingProvider
	limiter *rate.Limiter
}

func NewRateLimitedEmbedder(inner EmbeddingProvider, rps float64, burst int) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return e.inner.Embed(ctx, text)
}

func (e *RateLimitedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return e.inner.BatchEmbed(ctx, texts)
}
