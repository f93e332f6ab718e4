package session

import (
	"context"
	"sync"

	"github.com/KavinT06/anigas-attire-sub000/internal/event"
)

// Phase is the resolution state of a Guard.
type Phase int

const (
	Checking Phase = iota
	Authenticated
	Anonymous
)

func (p Phase) String() string {
	switch p {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "checking"
	}
}

// Decision is what a protected entry point should do.
type Decision int

const (
	Allow Decision = iota + 1
	RedirectToLogin
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect_to_login"
}

// Guard gates a protected entry point (checkout, addresses, orders). It
// stays in Checking until the first resolution and then follows AuthChanged.
type Guard struct {
	manager *Manager

	mu    sync.Mutex
	phase Phase
	unsub func()
}

// NewGuard creates a guard bound to m.
func NewGuard(m *Manager) *Guard {
	g := &Guard{manager: m}
	g.unsub = m.Subscribe(func(ev event.AuthChanged) {
		g.mu.Lock()
		if ev.LoggedIn {
			g.phase = Authenticated
		} else {
			g.phase = Anonymous
		}
		g.mu.Unlock()
	})
	return g
}

// Phase returns the current phase.
func (g *Guard) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Resolve commits to a decision, checking the session first when the guard
// is still in Checking.
func (g *Guard) Resolve(ctx context.Context) Decision {
	g.mu.Lock()
	phase := g.phase
	g.mu.Unlock()

	if phase == Checking {
		s := g.manager.CheckStatus(ctx)
		phase = Anonymous
		if s.LoggedIn {
			phase = Authenticated
		}
		g.mu.Lock()
		if g.phase == Checking {
			g.phase = phase
		} else {
			phase = g.phase
		}
		g.mu.Unlock()
	}

	if phase == Authenticated {
		return Allow
	}
	return RedirectToLogin
}

// Close detaches the guard from session broadcasts.
func (g *Guard) Close() {
	g.unsub()
}
