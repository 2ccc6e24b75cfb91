// Package sqlitestore provides a SQLite-backed feedback store.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/feedback"
)

// Store implements feedback.Store using SQLite. Events are append-only rows;
// the ULID primary key keeps insertion order and creation order aligned.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite feedback store.
type Config struct {
	// DBPath is a file path or ":memory:" for an in-memory database.
	DBPath string
}

// NewStore creates a SQLite-backed feedback store and migrates its schema.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", feedback.ErrUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL: %v", feedback.ErrUnavailable, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback_events (
			id           TEXT PRIMARY KEY,
			component_id TEXT NOT NULL,
			delta        REAL NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", feedback.ErrUnavailable, err)
	}

	if _, err := db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_feedback_events_component ON feedback_events(component_id)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating index: %v", feedback.ErrUnavailable, err)
	}

	logger.Info("sqlite feedback store initialized", zap.String("db_path", c.DBPath))

	return &Store{db: db, logger: logger}, nil
}

// Append stores one event.
func (s *Store) Append(ctx context.Context, rec feedback.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, component_id, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.ComponentID, rec.Delta, rec.Reason,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: inserting event: %v", feedback.ErrUnavailable, err)
	}

	s.logger.Debug("feedback recorded",
		zap.String("component", rec.ComponentID),
		zap.Float64("delta", rec.Delta),
	)
	return nil
}

// ForComponent returns all events for a component, oldest first.
func (s *Store) ForComponent(ctx context.Context, componentID string) ([]feedback.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, component_id, delta, reason, created_at
		FROM feedback_events
		WHERE component_id = ?
		ORDER BY id ASC`,
		componentID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events: %v", feedback.ErrUnavailable, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// All returns every event, oldest first.
func (s *Store) All(ctx context.Context) ([]feedback.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, component_id, delta, reason, created_at
		FROM feedback_events
		ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events: %v", feedback.ErrUnavailable, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]feedback.Record, error) {
	var out []feedback.Record
	for rows.Next() {
		var (
			rec       feedback.Record
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.ComponentID, &rec.Delta, &rec.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}
		rec.CreatedAt = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ feedback.Store = (*Store)(nil)
