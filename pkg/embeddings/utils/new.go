// Package embeddingutils constructs embedders from configuration.
package embeddingutils

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/embeddings"
	"github.com/quiltmem/quilt/pkg/embeddings/cache"
	"github.com/quiltmem/quilt/pkg/embeddings/mock"
	"github.com/quiltmem/quilt/pkg/embeddings/ollama"
)

// NewEmbedder constructs the embedding provider selected by cfg.Embedding,
// wrapped in a cache when cache_entries is set.
func NewEmbedder(cfg *config.Config, logger *zap.Logger) (embeddings.Embedder, error) {
	var (
		embedder embeddings.Embedder
		err      error
	)

	switch cfg.Embedding.Provider {
	case "ollama":
		embedder, err = ollama.NewEmbedder(ollama.Config{
			Target:     cfg.Embedding.Target,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Summarizer.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}

	case "mock":
		embedder = mock.NewEmbedder(cfg.Embedding.Dimensions)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}

	if cfg.Embedding.CacheEntries > 0 {
		return cache.NewEmbedder(embedder, cfg.Embedding.CacheEntries, logger)
	}

	return embedder, nil
}
