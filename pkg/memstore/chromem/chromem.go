// Package chromem provides an embedded vector-indexed memstore driver backed
// by chromem-go.
//
// chromem-go is a pure Go vector database with optional on-disk persistence,
// which makes it the local-development story for semantic search: no server,
// just a persist directory. Record fields ride along as document metadata so
// Load/List work without a second store.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/memstore"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "quilt_memory"

// Driver implements memstore.VectorDriver over a chromem-go collection.
type Driver struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger

	// chromem has no enumeration API, so the driver keeps an id index,
	// mirrored to a sidecar file when persistence is on.
	mu      sync.RWMutex
	ids     map[string]struct{}
	idsPath string
}

// Config holds configuration for the chromem driver.
type Config struct {
	// PersistDir is the on-disk location. Empty means in-memory only.
	PersistDir string

	// Collection is the collection name. Defaults to DefaultCollection.
	Collection string
}

// NewDriver creates a chromem-backed memstore driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	var (
		db  *chromem.DB
		err error
	)
	if c.PersistDir != "" {
		db, err = chromem.NewPersistentDB(c.PersistDir, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening persistent db: %v", memstore.ErrUnavailable, err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := c.Collection
	if name == "" {
		name = DefaultCollection
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %q: %v", memstore.ErrUnavailable, name, err)
	}

	d := &Driver{
		db:         db,
		collection: col,
		logger:     logger,
		ids:        make(map[string]struct{}),
	}

	if c.PersistDir != "" {
		d.idsPath = filepath.Join(c.PersistDir, name+".ids.json")
		if err := d.loadIDIndex(); err != nil {
			return nil, err
		}
	}

	logger.Info("chromem memory store initialized",
		zap.String("persist_dir", c.PersistDir),
		zap.String("collection", name),
		zap.Int("documents", col.Count()),
	)

	return d, nil
}

// Save stores a record as a chromem document. chromem rejects documents
// without an embedding, so records saved before embedding generation get a
// single-dimension placeholder that QuerySimilar never matches meaningfully;
// the engine always attaches real embeddings before saving here.
func (d *Driver) Save(ctx context.Context, rec component.Record) error {
	embedding := rec.Embedding
	if len(embedding) == 0 {
		embedding = []float32{0}
	}

	meta, err := encodeMetadata(rec)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: embedding,
		Metadata:  meta,
	}

	if err := d.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: adding document %s: %v", memstore.ErrUnavailable, rec.ID, err)
	}

	d.mu.Lock()
	d.ids[rec.ID] = struct{}{}
	err = d.saveIDIndex()
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.logger.Debug("saved record", zap.String("id", rec.ID))
	return nil
}

// Load retrieves a record by id.
func (d *Driver) Load(ctx context.Context, id string) (component.Record, error) {
	doc, err := d.collection.GetByID(ctx, id)
	if err != nil {
		return component.Record{}, fmt.Errorf("%w: %s", memstore.ErrNotFound, id)
	}
	return decodeDocument(doc.ID, doc.Content, doc.Embedding, doc.Metadata)
}

// List returns records matching the filter, oldest first.
func (d *Driver) List(ctx context.Context, filter memstore.Filter) ([]component.Record, error) {
	d.mu.RLock()
	ids := make([]string, 0, len(d.ids))
	for id := range d.ids {
		ids = append(ids, id)
	}
	d.mu.RUnlock()

	var out []component.Record
	for _, id := range ids {
		doc, err := d.collection.GetByID(ctx, id)
		if err != nil {
			continue
		}
		rec, err := decodeDocument(doc.ID, doc.Content, doc.Embedding, doc.Metadata)
		if err != nil {
			return nil, err
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// Delete removes a record; absent ids are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	_, known := d.ids[id]
	delete(d.ids, id)
	err := d.saveIDIndex()
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if !known {
		return nil
	}

	if err := d.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("%w: deleting %s: %v", memstore.ErrUnavailable, id, err)
	}
	return nil
}

// QuerySimilar returns the k nearest records by cosine similarity. chromem
// caps nResults at the collection size, so k is clamped before the query.
func (d *Driver) QuerySimilar(ctx context.Context, embedding []float32, k int) ([]memstore.Similar, error) {
	count := d.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 || k > count {
		k = count
	}

	results, err := d.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", memstore.ErrUnavailable, err)
	}

	out := make([]memstore.Similar, 0, len(results))
	for _, res := range results {
		rec, err := decodeDocument(res.ID, res.Content, res.Embedding, res.Metadata)
		if err != nil {
			d.logger.Warn("skipping undecodable document",
				zap.String("id", res.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, memstore.Similar{Record: rec, Score: res.Similarity})
	}

	// Equal similarity ties break on stored recency.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Record.CreatedAt.After(out[j].Record.CreatedAt)
		}
		return out[i].Score > out[j].Score
	})

	return out, nil
}

// Close is a no-op; persistent chromem writes through on every mutation.
func (d *Driver) Close() error {
	return nil
}

// loadIDIndex hydrates the id index from the sidecar file.
func (d *Driver) loadIDIndex() error {
	data, err := os.ReadFile(d.idsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading id index: %v", memstore.ErrUnavailable, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parsing id index %s: %w", d.idsPath, err)
	}
	for _, id := range ids {
		d.ids[id] = struct{}{}
	}

	return nil
}

// saveIDIndex mirrors the id index to disk. Callers must hold the write lock.
// A no-op for in-memory databases.
func (d *Driver) saveIDIndex() error {
	if d.idsPath == "" {
		return nil
	}

	ids := make([]string, 0, len(d.ids))
	for id := range d.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding id index: %w", err)
	}

	tmp := d.idsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing id index: %v", memstore.ErrUnavailable, err)
	}
	if err := os.Rename(tmp, d.idsPath); err != nil {
		return fmt.Errorf("%w: renaming id index: %v", memstore.ErrUnavailable, err)
	}

	return nil
}

func encodeMetadata(rec component.Record) (map[string]string, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags for %s: %w", rec.ID, err)
	}

	meta := map[string]string{
		"type":        string(rec.Type),
		"name":        rec.Name,
		"source":      rec.Source,
		"base_weight": strconv.FormatFloat(rec.BaseWeight, 'f', -1, 64),
		"tags":        string(tags),
		"created_at":  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.Success != nil {
		meta["success"] = strconv.FormatBool(*rec.Success)
	}
	for k, v := range rec.Metadata {
		meta["x_"+k] = v
	}

	return meta, nil
}

func decodeDocument(id, content string, embedding []float32, meta map[string]string) (component.Record, error) {
	rec := component.Record{
		ID:        id,
		Type:      component.Type(meta["type"]),
		Name:      meta["name"],
		Content:   content,
		Source:    meta["source"],
		Embedding: embedding,
	}

	if w := meta["base_weight"]; w != "" {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return component.Record{}, fmt.Errorf("decoding base_weight for %s: %w", id, err)
		}
		rec.BaseWeight = f
	}
	if s, ok := meta["success"]; ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return component.Record{}, fmt.Errorf("decoding success for %s: %w", id, err)
		}
		rec.Success = &b
	}
	if tags := meta["tags"]; tags != "" {
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return component.Record{}, fmt.Errorf("decoding tags for %s: %w", id, err)
		}
	}
	if ts := meta["created_at"]; ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return component.Record{}, fmt.Errorf("parsing created_at for %s: %w", id, err)
		}
		rec.CreatedAt = parsed
	}

	for k, v := range meta {
		if len(k) > 2 && k[:2] == "x_" {
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]string)
			}
			rec.Metadata[k[2:]] = v
		}
	}

	return rec, nil
}

var _ memstore.VectorDriver = (*Driver)(nil)
