// Package jsonfile provides a flat-file memstore driver.
//
// Records live in a single human-readable JSON file. The driver is
// single-writer: a mutex serializes mutations, and each write lands via a
// temp-file rename so readers never observe a partially-written file.
// Id collisions are last-write-wins.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/memstore"
)

// Driver implements memstore.Driver over a single JSON file.
type Driver struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	records map[string]component.Record
}

// Config holds configuration for the flat-file driver.
type Config struct {
	// Path is the JSON file location. Parent directories are created.
	Path string
}

// NewDriver creates a flat-file driver, loading any existing file.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("json file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %v", memstore.ErrUnavailable, err)
	}

	d := &Driver{
		path:    c.Path,
		logger:  logger,
		records: make(map[string]component.Record),
	}

	if err := d.loadFile(); err != nil {
		return nil, err
	}

	logger.Info("json memory store initialized",
		zap.String("path", c.Path),
		zap.Int("records", len(d.records)),
	)

	return d, nil
}

func (d *Driver) loadFile() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", memstore.ErrUnavailable, d.path, err)
	}

	if len(data) == 0 {
		return nil
	}

	var recs []component.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("parsing %s: %w", d.path, err)
	}

	for _, rec := range recs {
		d.records[rec.ID] = rec
	}

	return nil
}

// flush writes the full record set to disk atomically. Callers must hold the
// write lock.
func (d *Driver) flush() error {
	recs := make([]component.Record, 0, len(d.records))
	for _, rec := range d.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", memstore.ErrUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("%w: renaming %s: %v", memstore.ErrUnavailable, tmp, err)
	}

	return nil
}

// Save stores a record, replacing any record with the same id.
func (d *Driver) Save(_ context.Context, rec component.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[rec.ID] = rec
	if err := d.flush(); err != nil {
		// Roll the map back so memory and disk do not drift apart.
		delete(d.records, rec.ID)
		return err
	}

	d.logger.Debug("saved record", zap.String("id", rec.ID), zap.String("type", string(rec.Type)))
	return nil
}

// Load retrieves a record by id.
func (d *Driver) Load(_ context.Context, id string) (component.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return component.Record{}, fmt.Errorf("%w: %s", memstore.ErrNotFound, id)
	}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (d *Driver) List(_ context.Context, filter memstore.Filter) ([]component.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []component.Record
	for _, rec := range d.records {
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
func (d *Driver) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[id]; !ok {
		return nil
	}
	delete(d.records, id)

	return d.flush()
}

// Close is a no-op; every write is already flushed.
func (d *Driver) Close() error {
	return nil
}

var _ memstore.Driver = (*Driver)(nil)
