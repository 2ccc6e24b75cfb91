// Package embeddings defines the text embedding capability used for
// semantic ranking.
package embeddings

import "context"

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the width of vectors this embedder produces.
	Dimensions() uint
}
