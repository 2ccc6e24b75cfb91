// Package sqlite provides a relational memstore driver backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/memstore"
)

// Driver implements memstore.Driver using SQLite. Writes are transactional
// per record; tag filtering happens in-process after a type-scoped scan.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite driver.
type Config struct {
	// DBPath is a file path or ":memory:" for an in-memory database.
	DBPath string
}

// NewDriver creates a SQLite-backed memstore driver and migrates its schema.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", memstore.ErrUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL: %v", memstore.ErrUnavailable, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_records (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			success     INTEGER,
			base_weight REAL NOT NULL,
			tags        TEXT NOT NULL DEFAULT '[]',
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", memstore.ErrUnavailable, err)
	}

	if _, err := db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_memory_records_type ON memory_records(type)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating index: %v", memstore.ErrUnavailable, err)
	}

	logger.Info("sqlite memory store initialized", zap.String("db_path", c.DBPath))

	return &Driver{db: db, logger: logger}, nil
}

// Save upserts a record inside a single transaction.
func (d *Driver) Save(ctx context.Context, rec component.Record) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags for %s: %w", rec.ID, err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", rec.ID, err)
	}

	var success sql.NullInt64
	if rec.Success != nil {
		success.Valid = true
		if *rec.Success {
			success.Int64 = 1
		}
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO memory_records
			(id, type, name, content, source, success, base_weight, tags, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			content = excluded.content,
			source = excluded.source,
			success = excluded.success,
			base_weight = excluded.base_weight,
			tags = excluded.tags,
			metadata = excluded.metadata,
			created_at = excluded.created_at
	`, rec.ID, string(rec.Type), rec.Name, rec.Content, rec.Source, success,
		rec.BaseWeight, string(tags), string(meta), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: saving %s: %v", memstore.ErrUnavailable, rec.ID, err)
	}

	d.logger.Debug("saved record", zap.String("id", rec.ID))
	return nil
}

// Load retrieves a record by id.
func (d *Driver) Load(ctx context.Context, id string) (component.Record, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, type, name, content, source, success, base_weight, tags, metadata, created_at
		FROM memory_records WHERE id = ?
	`, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return component.Record{}, fmt.Errorf("%w: %s", memstore.ErrNotFound, id)
	}
	if err != nil {
		return component.Record{}, fmt.Errorf("loading %s: %w", id, err)
	}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (d *Driver) List(ctx context.Context, filter memstore.Filter) ([]component.Record, error) {
	query := `
		SELECT id, type, name, content, source, success, base_weight, tags, metadata, created_at
		FROM memory_records
	`
	var args []any
	if filter.Type != "" {
		query += ` WHERE type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", memstore.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []component.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return out, nil
}

// Delete removes a record; absent ids are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM memory_records WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("%w: deleting %s: %v", memstore.ErrUnavailable, id, err)
	}
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func scanRecord(scan func(dest ...any) error) (component.Record, error) {
	var (
		rec       component.Record
		typ       string
		success   sql.NullInt64
		tags      string
		meta      string
		createdAt string
	)

	if err := scan(&rec.ID, &typ, &rec.Name, &rec.Content, &rec.Source,
		&success, &rec.BaseWeight, &tags, &meta, &createdAt); err != nil {
		return component.Record{}, err
	}

	rec.Type = component.Type(typ)
	if success.Valid {
		b := success.Int64 != 0
		rec.Success = &b
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return component.Record{}, fmt.Errorf("decoding tags: %w", err)
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return component.Record{}, fmt.Errorf("decoding metadata: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return component.Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = ts

	return rec, nil
}

var _ memstore.Driver = (*Driver)(nil)
