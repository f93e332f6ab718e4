// Package session tracks whether the user is signed in. State is derived from
// the token store, never persisted, and broadcast on the AuthChanged bus.
package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
)

const (
	placeholderID   = "me"
	placeholderName = "Customer"
)

// TokenReader is the part of the token store the session needs.
type TokenReader interface {
	Access(ctx context.Context) string
	HasAccess(ctx context.Context) bool
}

// Manager owns the process-wide session state.
type Manager struct {
	tokens TokenReader
	store  storage.Store
	bus    *event.Bus[event.AuthChanged]
	logger *slog.Logger

	mu      sync.RWMutex
	current domain.Session
	checked bool
}

// NewManager creates a session manager. store is read for the last known
// phone number when building a placeholder user.
func NewManager(tokens TokenReader, store storage.Store, bus *event.Bus[event.AuthChanged], logger *slog.Logger) *Manager {
	return &Manager{
		tokens: tokens,
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// CheckStatus recomputes the session from the token store. It never calls
// the network; a signed-in session without a known user gets a placeholder.
func (m *Manager) CheckStatus(ctx context.Context) domain.Session {
	loggedIn := m.tokens.HasAccess(ctx)

	var stub *domain.User
	if loggedIn {
		stub = m.placeholder(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = true
	m.current.LoggedIn = loggedIn
	switch {
	case !loggedIn:
		m.current.User = nil
	case m.current.User == nil:
		m.current.User = stub
	}
	return m.snapshotLocked()
}

// OnLoginSuccess marks the session signed in and broadcasts AuthChanged. A
// nil user is replaced with a placeholder.
func (m *Manager) OnLoginSuccess(ctx context.Context, user *domain.User) {
	if user == nil {
		user = m.placeholder(ctx)
	}

	m.mu.Lock()
	m.checked = true
	m.current = domain.Session{LoggedIn: true, User: cloneUser(user)}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session started", slog.String("user_id", user.ID.String()))
	m.bus.Publish(event.AuthChanged{LoggedIn: true, User: snap.User})
}

// OnLogout marks the session signed out and broadcasts AuthChanged. Calling it
// repeatedly is harmless.
func (m *Manager) OnLogout(ctx context.Context) {
	m.mu.Lock()
	m.checked = true
	m.current = domain.Session{}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session ended")
	m.bus.Publish(event.AuthChanged{LoggedIn: false})
}

// Current returns a copy of the session.
func (m *Manager) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Checked reports whether the session has been resolved at least once.
func (m *Manager) Checked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checked
}

// Subscribe registers fn for AuthChanged broadcasts.
func (m *Manager) Subscribe(fn func(event.AuthChanged)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

func (m *Manager) snapshotLocked() domain.Session {
	return domain.Session{LoggedIn: m.current.LoggedIn, User: cloneUser(m.current.User)}
}

func (m *Manager) placeholder(ctx context.Context) *domain.User {
	name := placeholderName
	var phone string
	if data, err := m.store.Get(ctx, storage.KeyUserPhone); err == nil && len(data) > 0 {
		phone = string(data)
		name = phone
	}
	return &domain.User{
		ID:          domain.FlexID(userIDFromToken(m.tokens.Access(ctx))),
		Name:        name,
		PhoneNumber: phone,
		Placeholder: true,
	}
}

// userIDFromToken reads user_id or sub from a JWT access token without
// verifying it. Tokens that are not JWTs yield the placeholder id.
func userIDFromToken(raw string) string {
	if raw == "" {
		return placeholderID
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return placeholderID
	}
	for _, key := range []string{"user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return placeholderID
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
