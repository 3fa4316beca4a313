package embeddings

import (
	"context"
	"errors"
	"sync"
)

// Ensure Cache implements the Embedder interface.
var _ Embedder = (*Cache)(nil)

// Cache is a process-local write-once embedding cache wrapping another
// Embedder. Entries are immutable once written, so readers never observe a
// changing vector and never block writers of other keys.
type Cache struct {
	inner Embedder

	mu      sync.RWMutex
	entries map[string][]float32
}

// NewCache wraps inner with an in-memory cache keyed by exact text.
func NewCache(inner Embedder) *Cache {
	return &Cache{
		inner:   inner,
		entries: make(map[string][]float32),
	}
}

// Embed returns cached vectors where available and asks the inner embedder
// only for the texts not yet seen. On inner failure nothing is cached and
// the error is returned.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	c.mu.RLock()
	for i, text := range texts {
		if v, ok := c.entries[text]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, errShortEmbedResponse
	}

	c.mu.Lock()
	for i, text := range missing {
		// First writer wins; a concurrent write of the same key holds the
		// same immutable value.
		if existing, ok := c.entries[text]; ok {
			out[missingIdx[i]] = existing
			continue
		}
		c.entries[text] = fresh[i]
		out[missingIdx[i]] = fresh[i]
	}
	c.mu.Unlock()

	return out, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var errShortEmbedResponse = errors.New("embeddings: inner embedder returned fewer vectors than texts")
