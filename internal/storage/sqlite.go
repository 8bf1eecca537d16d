package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"duobudget/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per collection in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	schema uint
}

// Revision is one entry of a collection's write history.
type Revision struct {
	Version   int64     `json:"version"`
	SizeBytes int64     `json:"sizeBytes"`
	WrittenAt time.Time `json:"writtenAt"`
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLITE_BUSY out of the picture
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	slog.InfoContext(ctx, "SQLite store ready", "path", dbPath, log.FieldVersion, schema)

	return &SQLiteStore{db: db, now: time.Now, schema: schema}, nil
}

// SchemaVersion is the migration version the database was left at.
func (s *SQLiteStore) SchemaVersion() uint {
	return s.schema
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, c Collection) (Blob, bool, error) {
	if !c.IsValid() {
		return Blob{}, false, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}

	var (
		b         Blob
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, version, updated_at FROM collections WHERE name = ?`, string(c),
	).Scan(&b.Body, &b.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, false, nil
	}
	if err != nil {
		return Blob{}, false, fmt.Errorf("read collection %s: %w", c, err)
	}
	b.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return b, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, c Collection, body []byte) (int64, error) {
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	var version int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO collections (name, version, body, updated_at) VALUES (?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = collections.version + 1,
			body = excluded.body,
			updated_at = excluded.updated_at
		RETURNING version`,
		string(c), body, now,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("write collection %s: %w", c, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collection_history (name, version, size_bytes, written_at) VALUES (?, ?, ?, ?)`,
		string(c), version, len(body), now,
	); err != nil {
		return 0, fmt.Errorf("record history for %s: %w", c, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit collection %s: %w", c, err)
	}

	slog.DebugContext(ctx, "Collection saved to SQLite",
		"collection", string(c),
		"version", version,
		"size_bytes", len(body))

	return version, nil
}

// History returns the most recent writes of a collection, newest first.
func (s *SQLiteStore) History(ctx context.Context, c Collection, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, size_bytes, written_at FROM collection_history
		WHERE name = ? ORDER BY version DESC LIMIT ?`, string(c), limit)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", c, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			r         Revision
			writtenAt int64
		)
		if err := rows.Scan(&r.Version, &r.SizeBytes, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.WrittenAt = time.UnixMilli(writtenAt).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
