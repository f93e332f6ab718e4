// Package token stores the access/refresh credential pair.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Store reads and writes the credential pair. It performs no validation of
// token structure or expiry; the backend is the authority.
type Store struct {
	backend    storage.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewStore creates a token store. Zero TTLs fall back to the defaults.
func NewStore(backend storage.Store, accessTTL, refreshTTL time.Duration, logger *slog.Logger) *Store {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Store{
		backend:    backend,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Access returns the current access token, or "" when absent.
func (s *Store) Access(ctx context.Context) string {
	return s.read(ctx, storage.KeyAccessToken)
}

// Refresh returns the current refresh token, or "" when absent.
func (s *Store) Refresh(ctx context.Context) string {
	return s.read(ctx, storage.KeyRefreshToken)
}

// HasAccess reports whether an access token is present.
func (s *Store) HasAccess(ctx context.Context) bool {
	return s.Access(ctx) != ""
}

// SetPair writes the access token and, when non-empty, the refresh token.
// An empty refresh keeps whatever refresh token was stored before.
func (s *Store) SetPair(ctx context.Context, access, refresh string) error {
	if access == "" {
		return errors.New("set token pair: empty access token")
	}
	if err := s.backend.Set(ctx, storage.KeyAccessToken, []byte(access), s.accessTTL); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if refresh == "" {
		return nil
	}
	if err := s.backend.Set(ctx, storage.KeyRefreshToken, []byte(refresh), s.refreshTTL); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Clear removes both tokens. It is safe to call on an empty store.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken} {
		if err := s.backend.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) read(ctx context.Context, key string) string {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read token",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return string(data)
}
