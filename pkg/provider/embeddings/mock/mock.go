// Package mock provides a test double for the embeddings.Embedder interface.
//
// Use Embedder to return pre-canned embedding vectors without a live model
// and to verify which texts were submitted for embedding.
//
// Example:
//
//	e := &mock.Embedder{
//	    Vectors: map[string][]float32{"wifi": {1, 0}},
//	}
//	vecs, _ := e.Embed(ctx, []string{"wifi"})
package mock

import (
	"context"
	"sync"

	"github.com/aroundmehq/aroundme/pkg/provider/embeddings"
)

// Embedder is a mock implementation of embeddings.Embedder.
type Embedder struct {
	mu sync.Mutex

	// Vectors maps input texts to their canned vectors. Texts without an
	// entry embed to a zero vector of dimension 3.
	Vectors map[string][]float32

	// Err, if non-nil, is returned as the error from every Embed call.
	Err error

	// EmbedFunc, if non-nil, handles Embed calls entirely.
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Calls records the texts of every Embed call in order.
	Calls [][]string
}

// Embed records the call and returns the configured vectors.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	e.Calls = append(e.Calls, cp)
	fn := e.EmbedFunc
	err := e.Err
	vectors := e.Vectors
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, 3)
	}
	return out, nil
}

// CallCount returns the number of recorded Embed calls. Thread-safe.
func (e *Embedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (e *Embedder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = nil
}

// Ensure Embedder implements embeddings.Embedder at compile time.
var _ embeddings.Embedder = (*Embedder)(nil)
