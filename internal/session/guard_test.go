package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_StartsChecking(t *testing.T) {
	f := newFixture(t)
	g := NewGuard(f.manager)
	defer g.Close()

	assert.Equal(t, Checking, g.Phase())
}

func TestGuard_AnonymousRedirects(t *testing.T) {
	f := newFixture(t)
	g := NewGuard(f.manager)
	defer g.Close()

	assert.Equal(t, RedirectToLogin, g.Resolve(context.Background()))
	assert.Equal(t, Anonymous, g.Phase())
}

func TestGuard_LoggedInAllows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tokens.SetPair(ctx, "tok1", ""))
	g := NewGuard(f.manager)
	defer g.Close()

	assert.Equal(t, Allow, g.Resolve(ctx))
	assert.Equal(t, Authenticated, g.Phase())
}

func TestGuard_FollowsAuthChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewGuard(f.manager)
	defer g.Close()

	assert.Equal(t, RedirectToLogin, g.Resolve(ctx))

	f.manager.OnLoginSuccess(ctx, nil)
	assert.Equal(t, Allow, g.Resolve(ctx))

	f.manager.OnLogout(ctx)
	assert.Equal(t, RedirectToLogin, g.Resolve(ctx))
	assert.Equal(t, "redirect_to_login", RedirectToLogin.String())
}

func TestGuard_CloseStopsFollowing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewGuard(f.manager)
	g.Resolve(ctx)
	g.Close()

	f.manager.OnLoginSuccess(ctx, nil)
	assert.Equal(t, Anonymous, g.Phase())
}
