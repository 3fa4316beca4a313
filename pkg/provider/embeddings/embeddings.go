// Package embeddings defines the Embedder interface for text embedding
// backends used by semantic requirement matching.
//
// The pipeline treats the embedder as an optional collaborator: when none is
// configured or the backend fails, callers degrade to non-semantic matching.
package embeddings

import (
	"context"
	"math"
)

// Embedder produces vector embeddings for texts.
//
// Embed returns one vector per input text, in input order. Implementations
// must be safe for concurrent use.
type Embedder interface {
	// Embed converts each text into an embedding vector. The returned slice
	// has the same length and order as texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// It returns 0 for vectors of different lengths or zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
