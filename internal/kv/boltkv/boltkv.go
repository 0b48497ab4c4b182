// Package boltkv is the fast on-device engine, a single BoltDB bucket holding
// one value per key.
package boltkv

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/duetapp/duet/internal/kv"
	"go.etcd.io/bbolt"
)

const stateBucket = "state"

// Store provides a BoltDB-backed kv.KV.
type Store struct {
	db *bbolt.DB
}

var _ kv.KV = (*Store)(nil)

// Open opens (or creates) a BoltDB file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return fmt.Errorf("state bucket is missing")
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return kv.ErrNotFound
		}
		// raw is only valid for the life of the transaction.
		value = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return fmt.Errorf("state bucket is missing")
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return fmt.Errorf("state bucket is missing")
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) ensureBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(stateBucket)); err != nil {
			return fmt.Errorf("create state bucket: %w", err)
		}
		return nil
	})
}
