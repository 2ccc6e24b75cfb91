// Package jsonstore provides a flat-file feedback store.
//
// Events append to an in-memory log mirrored to a single JSON file. Writes
// land via a temp-file rename, same as the flat-file memory store.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/feedback"
)

// Store implements feedback.Store over a single JSON file.
type Store struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	recs []feedback.Record
}

// Config holds configuration for the flat-file feedback store.
type Config struct {
	// Path is the JSON file location. Parent directories are created.
	Path string
}

// NewStore creates a flat-file feedback store, loading any existing file.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("json file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %v", feedback.ErrUnavailable, err)
	}

	s := &Store{path: c.Path, logger: logger}
	if err := s.loadFile(); err != nil {
		return nil, err
	}

	logger.Info("json feedback store initialized",
		zap.String("path", c.Path),
		zap.Int("events", len(s.recs)),
	)

	return s, nil
}

func (s *Store) loadFile() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", feedback.ErrUnavailable, s.path, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.recs); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}

	return nil
}

// flush writes the full event log to disk atomically. Callers must hold the
// write lock.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", feedback.ErrUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: renaming %s: %v", feedback.ErrUnavailable, tmp, err)
	}

	return nil
}

// Append stores one event.
func (s *Store) Append(_ context.Context, rec feedback.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs = append(s.recs, rec)
	if err := s.flush(); err != nil {
		s.recs = s.recs[:len(s.recs)-1]
		return err
	}

	s.logger.Debug("feedback recorded",
		zap.String("component", rec.ComponentID),
		zap.Float64("delta", rec.Delta),
	)
	return nil
}

// ForComponent returns all events for a component, oldest first.
func (s *Store) ForComponent(_ context.Context, componentID string) ([]feedback.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []feedback.Record
	for _, rec := range s.recs {
		if rec.ComponentID == componentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every event, oldest first.
func (s *Store) All(_ context.Context) ([]feedback.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]feedback.Record, len(s.recs))
	copy(out, s.recs)
	return out, nil
}

// Close is a no-op; every append is already flushed.
func (s *Store) Close() error {
	return nil
}

var _ feedback.Store = (*Store)(nil)
