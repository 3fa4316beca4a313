// Package pgcache provides a PostgreSQL-backed embedding cache using the
// pgvector extension.
//
// Vectors are keyed by the SHA-256 of the exact input text, so a cache hit
// requires byte-identical text. Entries are written once and never updated;
// a concurrent insert of the same key is a no-op.
package pgcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/aroundmehq/aroundme/pkg/provider/embeddings"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS embedding_cache (
    text_sha256 TEXT PRIMARY KEY,
    body        TEXT NOT NULL,
    model       TEXT NOT NULL,
    embedding   vector NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Ensure Cache implements the embeddings.Embedder interface.
var _ embeddings.Embedder = (*Cache)(nil)

// Cache is a persistent embedding cache backed by PostgreSQL with pgvector.
// It wraps an inner Embedder that is consulted only on cache misses.
type Cache struct {
	pool  *pgxpool.Pool
	inner embeddings.Embedder
	model string
}

// New connects to PostgreSQL at dsn, ensures the cache table exists, and
// returns a Cache delegating misses to inner. model is stored alongside each
// entry so caches for different embedding models can share a table; it also
// scopes lookups.
func New(ctx context.Context, dsn string, inner embeddings.Embedder, model string) (*Cache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgcache: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgcache: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgcache: ensure schema: %w", err)
	}
	return &Cache{pool: pool, inner: inner, model: model}, nil
}

// Embed returns cached vectors where available and asks the inner embedder
// only for the texts not yet stored. Fresh vectors are persisted before
// returning.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		vec, ok, err := c.lookup(ctx, text)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("pgcache: inner embed: %w", err)
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("pgcache: expected %d embeddings, got %d", len(missing), len(fresh))
	}

	for i, text := range missing {
		if err := c.store(ctx, text, fresh[i]); err != nil {
			return nil, err
		}
		out[missingIdx[i]] = fresh[i]
	}
	return out, nil
}

func (c *Cache) lookup(ctx context.Context, text string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := c.pool.QueryRow(ctx,
		`SELECT embedding FROM embedding_cache WHERE text_sha256 = $1 AND model = $2`,
		textKey(text), c.model,
	).Scan(&vec)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgcache: lookup: %w", err)
	}
	return vec.Slice(), true, nil
}

func (c *Cache) store(ctx context.Context, text string, vec []float32) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO embedding_cache (text_sha256, body, model, embedding)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (text_sha256) DO NOTHING`,
		textKey(text), text, c.model, pgvector.NewVector(vec),
	)
	if err != nil {
		return fmt.Errorf("pgcache: store: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() {
	c.pool.Close()
}

func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
