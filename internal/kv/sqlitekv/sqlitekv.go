// Package sqlitekv is the generic string engine, a single SQLite table keyed
// by name.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/duetapp/duet/internal/kv"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
    Key TEXT PRIMARY KEY,
    Value TEXT NOT NULL,
    UpdatedAt TIMESTAMP NOT NULL
);`

// Store provides a SQLite-backed kv.KV.
type Store struct {
	db *sql.DB
}

var _ kv.KV = (*Store)(nil)

// Open opens (or creates) a SQLite database at the given path and enables WAL journal mode.
func Open(path string) (*Store, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires an existing connection, creating the table if needed.
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure kv schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT Value FROM kv WHERE Key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kv.ErrNotFound
	}
	return value, err
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (Key, Value, UpdatedAt) VALUES (?,?,?)
         ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt`,
		key, value, time.Now().UTC())
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE Key = ?`, key)
	return err
}
