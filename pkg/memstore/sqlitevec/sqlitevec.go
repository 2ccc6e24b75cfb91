// Package sqlitevec provides a vector-indexed memstore driver using SQLite
// with the sqlite-vec extension.
//
// Records live in a regular table; embeddings live in a vec0 virtual table
// keyed by the record rowid, declared with the cosine distance metric so
// QuerySimilar ranks by cosine similarity.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/memstore"
)

// Driver implements memstore.VectorDriver over SQLite + sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the sqlite-vec driver.
type Config struct {
	// DBPath is a file path or ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding vector width. Required.
	Dimensions uint
}

// NewDriver creates a sqlite-vec backed memstore driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", memstore.ErrUnavailable, err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", memstore.ErrUnavailable, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_records (
			rowid       INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
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
		return nil, fmt.Errorf("%w: creating records table: %v", memstore.ErrUnavailable, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %v", memstore.ErrUnavailable, err)
	}

	logger.Info("sqlite-vec memory store initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{db: db, logger: logger}, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Save upserts a record and its embedding in a single transaction.
// vec0 tables do not support UPDATE, so replacing an embedding is a
// DELETE + INSERT against the existing rowid.
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

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", memstore.ErrUnavailable, err)
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM memory_records WHERE id = ?`, rec.ID,
	).Scan(&rowID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `
			UPDATE memory_records SET
				type = ?, name = ?, content = ?, source = ?, success = ?,
				base_weight = ?, tags = ?, metadata = ?, created_at = ?
			WHERE rowid = ?
		`, string(rec.Type), rec.Name, rec.Content, rec.Source, success,
			rec.BaseWeight, string(tags), string(meta),
			rec.CreatedAt.UTC().Format(time.RFC3339Nano), rowID); err != nil {
			return fmt.Errorf("updating record %s: %w", rec.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for %s: %w", rec.ID, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO memory_records
				(id, type, name, content, source, success, base_weight, tags, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, string(rec.Type), rec.Name, rec.Content, rec.Source, success,
			rec.BaseWeight, string(tags), string(meta),
			rec.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
		rowID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for %s: %w", rec.ID, err)
		}
	default:
		return fmt.Errorf("%w: checking for record %s: %v", memstore.ErrUnavailable, rec.ID, err)
	}

	if len(rec.Embedding) > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(rec.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", memstore.ErrUnavailable, err)
	}

	d.logger.Debug("saved record",
		zap.String("id", rec.ID),
		zap.Int("embedding_dim", len(rec.Embedding)),
	)

	return nil
}

// Load retrieves a record by id, including its embedding when present.
func (d *Driver) Load(ctx context.Context, id string) (component.Record, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT rowid, id, type, name, content, source, success, base_weight, tags, metadata, created_at
		FROM memory_records WHERE id = ?
	`, id)

	rowID, rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return component.Record{}, fmt.Errorf("%w: %s", memstore.ErrNotFound, id)
	}
	if err != nil {
		return component.Record{}, fmt.Errorf("loading %s: %w", id, err)
	}

	var blob []byte
	err = d.db.QueryRowContext(ctx,
		`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, rowID,
	).Scan(&blob)
	if err == nil && len(blob) > 0 {
		rec.Embedding, _ = deserializeFloat32(blob)
	}

	return rec, nil
}

// List returns records matching the filter, oldest first. Embeddings are not
// hydrated; List serves ranking, which only needs text and weights.
func (d *Driver) List(ctx context.Context, filter memstore.Filter) ([]component.Record, error) {
	query := `
		SELECT rowid, id, type, name, content, source, success, base_weight, tags, metadata, created_at
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
		_, rec, err := scanRecord(rows.Scan)
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

// Delete removes a record and its embedding; absent ids are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", memstore.ErrUnavailable, err)
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM memory_records WHERE id = ?`, id,
	).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: looking up %s: %v", memstore.ErrUnavailable, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
	); err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_records WHERE rowid = ?`, rowID,
	); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}

	return tx.Commit()
}

// QuerySimilar runs a KNN query via vec0 MATCH, joining back to the record
// table. The vec0 table is declared with the cosine metric, so similarity is
// 1 - distance; ties break on stored recency via the ORDER BY.
func (d *Driver) QuerySimilar(ctx context.Context, embedding []float32, k int) ([]memstore.Similar, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			r.rowid, r.id, r.type, r.name, r.content, r.source, r.success,
			r.base_weight, r.tags, r.metadata, r.created_at,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN memory_records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance ASC, r.created_at DESC
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", memstore.ErrUnavailable, err)
	}
	defer rows.Close()

	var results []memstore.Similar
	for rows.Next() {
		var (
			rowID     int64
			rec       component.Record
			typ       string
			success   sql.NullInt64
			tags      string
			meta      string
			createdAt string
			distance  float64
		)
		if err := rows.Scan(&rowID, &rec.ID, &typ, &rec.Name, &rec.Content, &rec.Source,
			&success, &rec.BaseWeight, &tags, &meta, &createdAt, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		if err := hydrate(&rec, typ, success, tags, meta, createdAt); err != nil {
			return nil, err
		}

		results = append(results, memstore.Similar{
			Record: rec,
			Score:  float32(1.0 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", zap.Int("results", len(results)))

	return results, nil
}

// Close releases the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func scanRecord(scan func(dest ...any) error) (int64, component.Record, error) {
	var (
		rowID     int64
		rec       component.Record
		typ       string
		success   sql.NullInt64
		tags      string
		meta      string
		createdAt string
	)

	if err := scan(&rowID, &rec.ID, &typ, &rec.Name, &rec.Content, &rec.Source,
		&success, &rec.BaseWeight, &tags, &meta, &createdAt); err != nil {
		return 0, component.Record{}, err
	}

	if err := hydrate(&rec, typ, success, tags, meta, createdAt); err != nil {
		return 0, component.Record{}, err
	}

	return rowID, rec, nil
}

func hydrate(rec *component.Record, typ string, success sql.NullInt64, tags, meta, createdAt string) error {
	rec.Type = component.Type(typ)
	if success.Valid {
		b := success.Int64 != 0
		rec.Success = &b
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return fmt.Errorf("decoding metadata: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = ts

	return nil
}

var _ memstore.VectorDriver = (*Driver)(nil)
