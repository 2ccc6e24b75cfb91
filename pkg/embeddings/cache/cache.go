// Package cache wraps an Embedder with an in-process ristretto cache keyed
// by text. Embedding the same content twice is common: every re-registration
// and every repeated query would otherwise hit the provider.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/embeddings"
)

// Embedder memoizes another embedder's results.
type Embedder struct {
	inner  embeddings.Embedder
	cache  *ristretto.Cache
	logger *zap.Logger
}

// NewEmbedder wraps inner with a cache holding up to maxEntries vectors.
func NewEmbedder(inner embeddings.Embedder, maxEntries uint, logger *zap.Logger) (*Embedder, error) {
	if maxEntries == 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		// Ristretto recommends 10x counters per expected entry.
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	return &Embedder{inner: inner, cache: cache, logger: logger}, nil
}

// Embed returns a cached vector when available, otherwise delegates and
// stores the result. Each entry costs 1 regardless of width.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec, 1)
	return vec, nil
}

// Dimensions is the wrapped embedder's vector width.
func (e *Embedder) Dimensions() uint {
	return e.inner.Dimensions()
}

// Close releases the cache's internal goroutines.
func (e *Embedder) Close() {
	e.cache.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
