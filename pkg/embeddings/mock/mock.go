// Package mock provides a deterministic offline Embedder.
//
// The vector is derived from token hashes, so texts sharing words land near
// each other. Good enough for tests and air-gapped development, useless for
// real semantics.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/quiltmem/quilt/pkg/embeddings"
)

// Embedder produces stable pseudo-embeddings from text content alone.
type Embedder struct {
	dimensions uint
}

// NewEmbedder creates a mock embedder of the given width.
func NewEmbedder(dimensions uint) *Embedder {
	if dimensions == 0 {
		dimensions = 64
	}
	return &Embedder{dimensions: dimensions}
}

// Embed hashes each lowercase token into a bucket and L2-normalizes the
// result. The same text always yields the same vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		vec[sum%uint64(e.dimensions)] += float32(1 + sum%7)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// Dimensions is the configured vector width.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

var _ embeddings.Embedder = (*Embedder)(nil)
