package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
)

func newTestStore(t *testing.T, namespace string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"), namespace)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "p1")

	require.NoError(t, s.Set(ctx, storage.KeyRefreshToken, []byte("r1"), 0))

	got, err := s.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("r1"), got)
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")

	_, err := s.Get(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "other", []byte("x"), 0))
	_, err = s.Get(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, storage.KeyAccessToken, []byte("a1"), 24*time.Hour))

	now = now.Add(23 * time.Hour)
	_, err := s.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = s.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")

	assert.NoError(t, s.Delete(ctx, "nothing-yet"))
	assert.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	s1, err := Open(path, "alice")
	require.NoError(t, err)
	s2 := New(s1.db, "bob")
	t.Cleanup(func() { s1.Close() })

	require.NoError(t, s1.Set(ctx, storage.KeyCart, []byte("a"), 0))
	_, err = s2.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s2.Clear(ctx))
	got, err := s1.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path, "p")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, storage.KeyUserPhone, []byte("9876543210"), 0))
	require.NoError(t, s.Close())

	s, err = Open(path, "p")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.Get(ctx, storage.KeyUserPhone)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", string(got))
}
