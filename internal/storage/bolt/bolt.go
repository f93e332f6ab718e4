// Package bolt provides a file-backed storage.Store using bbolt. It is the
// default store for the command-line storefront.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
)

// record is the on-disk form of a value.
type record struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (r record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store implements storage.Store in a single bbolt bucket named after the
// namespace.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New returns a store using an already opened database.
func New(db *bbolt.DB, namespace string) *Store {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{db: db, bucket: []byte(namespace), now: time.Now}
}

// Open opens (creating if needed) the database file at path.
func Open(path, namespace string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db, namespace), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var rec record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return storage.ErrNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}
	if rec.expired(s.now()) {
		// Lazy eviction; a failure here only leaves a dead record behind.
		_ = s.Delete(context.Background(), key)
		return nil, storage.ErrNotFound
	}
	return rec.Value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	rec := record{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = s.now().Add(ttl).UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Clear drops the namespace bucket.
func (s *Store) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return nil
		}
		return tx.DeleteBucket(s.bucket)
	})
}
