// Package notice collects informational messages for the user and remembers
// which ones were dismissed during the current session.
package notice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage/memory"
)

const dismissedPrefix = "notice:dismissed:"

// Center holds the notices published on the bus.
type Center struct {
	flags  storage.Store
	logger *slog.Logger
	unsub  func()

	mu      sync.Mutex
	notices []event.Notice
}

// NewCenter subscribes to bus. Dismissal flags go to flags, which should be
// session scoped; nil uses a fresh in-memory store.
func NewCenter(bus *event.Bus[event.Notice], flags storage.Store, logger *slog.Logger) *Center {
	if flags == nil {
		flags = memory.New()
	}
	c := &Center{flags: flags, logger: logger}
	c.unsub = bus.Subscribe(c.add)
	return c
}

// Close stops collecting.
func (c *Center) Close() {
	c.unsub()
}

func (c *Center) add(n event.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notices {
		if c.notices[i].ID == n.ID {
			c.notices[i] = n
			return
		}
	}
	c.notices = append(c.notices, n)
}

// Pending returns the notices that have not been dismissed, oldest first.
func (c *Center) Pending(ctx context.Context) []event.Notice {
	c.mu.Lock()
	all := append([]event.Notice(nil), c.notices...)
	c.mu.Unlock()

	out := make([]event.Notice, 0, len(all))
	for _, n := range all {
		if !c.Dismissed(ctx, n.ID) {
			out = append(out, n)
		}
	}
	return out
}

// Dismiss hides the notice with id for the rest of the session, including
// future publications of it.
func (c *Center) Dismiss(ctx context.Context, id string) error {
	return c.flags.Set(ctx, dismissedPrefix+id, []byte("1"), 0)
}

// Dismissed reports whether id was dismissed.
func (c *Center) Dismissed(ctx context.Context, id string) bool {
	_, err := c.flags.Get(ctx, dismissedPrefix+id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logger.WarnContext(ctx, "failed to read notice flag", slog.String("id", id), slog.String("error", err.Error()))
	}
	return err == nil
}
