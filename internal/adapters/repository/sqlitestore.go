package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	name       TEXT PRIMARY KEY,
	version    TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`

// SQLiteStore keeps artifacts in a single SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	now         func() time.Time
	nextVersion func() string
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the artifact database at path. The special
// path ":memory:" keeps everything in memory.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create artifact schema in %s: %w", path, err)
	}

	s := &SQLiteStore{db: db, now: time.Now, nextVersion: newVersion}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveAll replaces the given artifacts atomically under one new version.
func (s *SQLiteStore) SaveAll(ctx context.Context, payloads map[string][]byte) (string, error) {
	if len(payloads) == 0 {
		return "", ErrEmptySave
	}
	version := s.nextVersion()
	created := s.now().UTC().UnixMilli()

	names := make([]string, 0, len(payloads))
	for name := range payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO artifacts (name, version, payload, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET version = excluded.version, payload = excluded.payload, created_at = excluded.created_at`
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, upsert, name, version, payloads[name], created); err != nil {
			return "", fmt.Errorf("save artifact %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	return version, nil
}

// Load returns the artifact called name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (Artifact, error) {
	var (
		a       = Artifact{Name: name}
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload, created_at FROM artifacts WHERE name = ?`, name,
	).Scan(&a.Version, &a.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("load artifact %s: %w", name, err)
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
}

// List returns artifact metadata ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, created_at FROM artifacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a       Artifact
			created int64
		)
		if err := rows.Scan(&a.Name, &a.Version, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
