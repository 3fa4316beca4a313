package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aroundmehq/aroundme/pkg/provider/embeddings/mock"
)

func TestGuardedEmbedder_PassesThrough(t *testing.T) {
	inner := &mock.Embedder{
		Vectors: map[string][]float32{"coffee": {1, 0, 0}},
	}
	guard := NewGuardedEmbedder(inner, CircuitBreakerConfig{Name: "embedder"})

	vectors, err := guard.Embed(context.Background(), []string{"coffee"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 1 || vectors[0][0] != 1 {
		t.Errorf("vectors: got %v", vectors)
	}
	if guard.State() != StateClosed {
		t.Errorf("state: got %v, want closed", guard.State())
	}
}

func TestGuardedEmbedder_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &mock.Embedder{Err: errors.New("backend down")}
	guard := NewGuardedEmbedder(inner, CircuitBreakerConfig{
		Name:         "embedder",
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})
	ctx := context.Background()

	for range 3 {
		if _, err := guard.Embed(ctx, []string{"x"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if guard.State() != StateOpen {
		t.Fatalf("state: got %v, want open", guard.State())
	}

	if _, err := guard.Embed(ctx, []string{"x"}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Embed with open breaker: got %v, want ErrCircuitOpen", err)
	}
	if inner.CallCount() != 3 {
		t.Errorf("inner calls: got %d, want 3", inner.CallCount())
	}
}
