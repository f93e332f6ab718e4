// Package storage persists client state between runs: credentials, the cart,
// the wishlist fallback cache and a few preferences. Backends live in the
// memory, redis and bolt subpackages.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("storage: key not found")

// Persisted keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyCart         = "cart"
	KeyWishlist     = "wishlist"
	KeyUserPhone    = "user_phone"
)

// Store is a key/value store with optional per-key expiry.
type Store interface {
	// Get returns ErrNotFound when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

// GetJSON decodes the value stored under key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// Noop is a Store that keeps nothing. Reads always miss and writes succeed.
// It is used where no persistent medium is available.
type Noop struct{}

var _ Store = Noop{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Clear(context.Context) error { return nil }
