// Package memory provides an in-process storage.Store. Values live as long as
// the process, which makes it the session-scoped store and the test double.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a mutex-guarded map honoring per-key expiry.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]entry), now: time.Now}
}

// NewWithClock creates a store that reads time from now. Used in tests to
// step past expirations.
func NewWithClock(now func() time.Time) *Store {
	return &Store{data: make(map[string]entry), now: now}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
