// Package sqlite provides a SQLite-backed overlay store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity_overlay (
	slug       TEXT PRIMARY KEY,
	definition TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// OverlayStore persists the registry overlay as one row per slug.
type OverlayStore struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path. Use ":memory:" for tests.
func Open(path string) (*OverlayStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store, err := NewFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewFromDB wraps an existing handle and ensures the schema exists.
func NewFromDB(db *sql.DB) (*OverlayStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &OverlayStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *OverlayStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get loads every overlay row.
func (s *OverlayStore) Get(ctx context.Context) (map[string]domain.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, definition FROM activity_overlay`)
	if err != nil {
		return nil, fmt.Errorf("query overlay: %w", err)
	}
	defer rows.Close()

	overlay := make(map[string]domain.Definition)
	for rows.Next() {
		var slug, raw string
		if err := rows.Scan(&slug, &raw); err != nil {
			return nil, fmt.Errorf("scan overlay row: %w", err)
		}
		var def domain.Definition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, fmt.Errorf("decode overlay entry %q: %w", slug, err)
		}
		overlay[slug] = def
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overlay: %w", err)
	}
	return overlay, nil
}

// Set replaces the whole overlay in one transaction.
func (s *OverlayStore) Set(ctx context.Context, overlay map[string]domain.Definition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_overlay`); err != nil {
		return fmt.Errorf("clear overlay: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	for slug, def := range overlay {
		raw, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("encode overlay entry %q: %w", slug, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO activity_overlay (slug, definition, updated_at) VALUES (?, ?, ?)`,
			slug, string(raw), now,
		); err != nil {
			return fmt.Errorf("insert overlay entry %q: %w", slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit overlay: %w", err)
	}
	return nil
}
