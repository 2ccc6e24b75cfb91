// Package memstore provides interfaces and implementations for durable
// component storage.
//
// Drivers are pluggable via configuration:
//
//	[memory_store]
//	type = "json"   # or "sqlite", "vector", "sqlite_vec", "postgres_vector"
//
// Every driver offers the same save/load/list/delete semantics; a save is
// atomic per record and a concurrent load observes either the old or the new
// value, never a torn one. Embedding-capable drivers additionally implement
// VectorDriver for nearest-neighbor queries.
package memstore

import (
	"context"

	"github.com/quiltmem/quilt/pkg/component"
)

// Filter narrows a List call. Zero-value fields match everything.
type Filter struct {
	// Tags selects records whose tag set intersects this set.
	Tags []string

	// Type selects records of a single component variant.
	Type component.Type
}

// Match reports whether a record passes the filter.
func (f Filter) Match(rec component.Record) bool {
	if f.Type != "" && rec.Type != f.Type {
		return false
	}
	if len(f.Tags) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(rec.Tags))
	for _, t := range rec.Tags {
		have[t] = struct{}{}
	}
	for _, t := range f.Tags {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}

// Driver handles durable storage and retrieval of component records.
type Driver interface {
	// Save stores a record, replacing any existing record with the same id
	// (last-write-wins). The write is atomic per record.
	Save(ctx context.Context, rec component.Record) error

	// Load retrieves a record by id. Returns ErrNotFound if absent.
	Load(ctx context.Context, id string) (component.Record, error)

	// List returns all records matching the filter, ordered by creation
	// time ascending. Ranking is the engine's concern, not the store's.
	List(ctx context.Context, filter Filter) ([]component.Record, error)

	// Delete removes a record by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// Close releases driver resources.
	Close() error
}

// Similar is one nearest-neighbor result.
type Similar struct {
	Record component.Record

	// Score is cosine similarity on normalized vectors (higher = closer).
	Score float32
}

// VectorDriver extends Driver with approximate or exact nearest-neighbor
// search over stored embeddings. Ties on similarity are broken by stored
// recency.
type VectorDriver interface {
	Driver

	// QuerySimilar returns the k records most similar to the embedding,
	// ranked by descending similarity.
	QuerySimilar(ctx context.Context, embedding []float32, k int) ([]Similar, error)
}
