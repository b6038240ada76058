// Package sqlite is a SQLite-backed docstore.Store used by the docd server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"

	"github.com/04shr/petzy/internal/docstore"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Store keeps documents in a single table.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer keeps Update's read-modify-write atomic.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return nil, err
	}
	var body string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return json.RawMessage(body), nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, doc json.RawMessage) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("document is not valid JSON")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
		    body = excluded.body,
		    updated_at = excluded.updated_at`,
		collection, id, string(doc), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]json.RawMessage) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load document %s/%s: %w", collection, id, err)
	}

	out, err := docstore.ApplyFields(json.RawMessage(body), fields)
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(out), s.now().UTC().UnixMilli(), collection, id,
	); err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}
