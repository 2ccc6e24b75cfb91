// Package memstoreutils constructs memstore drivers from configuration.
package memstoreutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/memstore"
	"github.com/quiltmem/quilt/pkg/memstore/chromem"
	"github.com/quiltmem/quilt/pkg/memstore/jsonfile"
	"github.com/quiltmem/quilt/pkg/memstore/pgvector"
	"github.com/quiltmem/quilt/pkg/memstore/sqlite"
	"github.com/quiltmem/quilt/pkg/memstore/sqlitevec"
)

// NewDriver constructs the memory store backend selected by cfg.MemoryStore.
// Callers needing similarity search should type-assert the result against
// memstore.VectorDriver, or use NewVectorDriver directly.
func NewDriver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (memstore.Driver, error) {
	switch cfg.MemoryStore.Type {
	case "json":
		return jsonfile.NewDriver(jsonfile.Config{
			Path: cfg.MemoryStore.Path,
		}, logger)

	case "sqlite":
		return sqlite.NewDriver(sqlite.Config{
			DBPath: cfg.MemoryStore.Path,
		}, logger)

	case "vector", "sqlite_vec", "postgres_vector":
		return NewVectorDriver(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unknown memory store type: %s", cfg.MemoryStore.Type)
	}
}

// NewVectorDriver constructs a similarity-capable backend. It fails for
// store types without vector support.
func NewVectorDriver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (memstore.VectorDriver, error) {
	switch cfg.MemoryStore.Type {
	case "vector":
		return chromem.NewDriver(chromem.Config{
			PersistDir: cfg.MemoryStore.PersistDir,
			Collection: cfg.MemoryStore.Collection,
		}, logger)

	case "sqlite_vec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     cfg.MemoryStore.Path,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)

	case "postgres_vector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: cfg.MemoryStore.ConnString(),
			Table:      cfg.MemoryStore.Table,
			Dimensions: cfg.Embedding.Dimensions,
			Index: pgvector.IndexConfig{
				Type:           cfg.MemoryStore.IndexType,
				M:              cfg.MemoryStore.IndexM,
				EfConstruction: cfg.MemoryStore.IndexEfConstruction,
				Lists:          cfg.MemoryStore.IndexLists,
			},
		}, logger)

	default:
		return nil, fmt.Errorf("memory store type %s has no vector support", cfg.MemoryStore.Type)
	}
}
