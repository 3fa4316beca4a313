package resilience

import (
	"context"

	"github.com/aroundmehq/aroundme/pkg/provider/embeddings"
)

// GuardedEmbedder wraps an [embeddings.Embedder] with a circuit breaker.
//
// The requirement matcher treats any embedding error as "semantic matching
// unavailable" and continues with its synchronous methods, so once the
// breaker opens the per-requirement embedding calls stop hammering a dead
// backend and fail instantly until the reset timeout elapses.
type GuardedEmbedder struct {
	inner   embeddings.Embedder
	breaker *CircuitBreaker
}

// Compile-time interface assertion.
var _ embeddings.Embedder = (*GuardedEmbedder)(nil)

// NewGuardedEmbedder wraps inner with a breaker built from cfg.
func NewGuardedEmbedder(inner embeddings.Embedder, cfg CircuitBreakerConfig) *GuardedEmbedder {
	return &GuardedEmbedder{
		inner:   inner,
		breaker: NewCircuitBreaker(cfg),
	}
}

// Embed forwards to the inner embedder while the breaker allows it. An open
// breaker returns [ErrCircuitOpen] without touching the backend.
func (g *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := g.breaker.Execute(func() error {
		var innerErr error
		vectors, innerErr = g.inner.Embed(ctx, texts)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// State reports the breaker state for health reporting.
func (g *GuardedEmbedder) State() State {
	return g.breaker.State()
}
