// Package cart is the client-side shopping basket. Lines live in memory and
// the whole collection is persisted on every mutation.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/optimistic"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

// Store holds the cart. It never talks to the network.
type Store struct {
	backend storage.Store
	bus     *event.Bus[event.CartChanged]
	logger  *slog.Logger

	mu   sync.Mutex
	cart *domain.Cart
}

// New creates an empty cart store. Call Load to restore persisted lines.
// A nil backend makes persistence a no-op.
func New(backend storage.Store, bus *event.Bus[event.CartChanged], logger *slog.Logger) *Store {
	if backend == nil {
		backend = storage.Noop{}
	}
	return &Store{
		backend: backend,
		bus:     bus,
		logger:  logger,
		cart:    &domain.Cart{},
	}
}

// Load replaces the in-memory cart with the persisted one. A missing or
// unreadable record yields an empty cart.
func (s *Store) Load(ctx context.Context) error {
	var persisted domain.Cart
	err := storage.GetJSON(ctx, s.backend, storage.KeyCart, &persisted)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.logger.WarnContext(ctx, "discarding unreadable cart", slog.String("error", err.Error()))
		persisted = domain.Cart{}
	}
	persisted.Items = sanitize(persisted.Items)

	s.mu.Lock()
	s.cart = &persisted
	s.mu.Unlock()
	s.publish()
	return nil
}

// Add puts qty units of product in the given size. An existing line for the
// same product and size is incremented; otherwise a new line snapshots the
// product's name, price, image and category.
func (s *Store) Add(ctx context.Context, product domain.Product, size string, qty int) error {
	if product.ID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if qty <= 0 {
		return apperrors.InvalidInput("quantity must be greater than 0")
	}

	key := domain.CartItemKey(product.ID.String(), size)
	err := s.mutate(ctx, func(c *domain.Cart) {
		if i := c.FindItemIndex(key); i >= 0 {
			c.Items[i].Quantity += qty
			return
		}
		c.Items = append(c.Items, domain.CartItem{
			ID:        key,
			ProductID: product.ID.String(),
			Name:      product.Name,
			Price:     product.UnitPrice(),
			Image:     product.PrimaryImage(),
			Size:      size,
			Quantity:  qty,
			Category:  string(product.Category),
		})
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("product_id", product.ID.String()),
		slog.String("size", size),
		slog.Int("quantity", qty),
	)
	return nil
}

// Remove deletes the line for productID and size. Removing a missing line is
// not an error.
func (s *Store) Remove(ctx context.Context, productID, size string) error {
	key := domain.CartItemKey(productID, size)
	return s.mutate(ctx, func(c *domain.Cart) {
		if i := c.FindItemIndex(key); i >= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
	})
}

// UpdateQuantity sets the quantity of a line. qty <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID, size string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, productID, size)
	}
	key := domain.CartItemKey(productID, size)
	return s.mutate(ctx, func(c *domain.Cart) {
		if i := c.FindItemIndex(key); i >= 0 {
			c.Items[i].Quantity = qty
		}
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(c *domain.Cart) {
		c.Items = nil
	})
}

// Reset drops the in-memory lines without persisting, for when the backing
// store has already been wiped.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cart = &domain.Cart{}
	s.mu.Unlock()
	s.publish()
}

// Items returns a copy of the current lines.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone().Items
}

// TotalItems returns the number of units across all lines.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

// TotalPrice returns the sum of price times quantity across all lines.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// mutate applies fn to the cart and persists the result. A failed write puts
// the previous lines back and returns the error.
func (s *Store) mutate(ctx context.Context, fn func(*domain.Cart)) error {
	s.mu.Lock()
	err := optimistic.Apply(s.cart.Clone(),
		func(prev *domain.Cart) { s.cart = prev },
		func() { fn(s.cart) },
		func() error { return storage.SetJSON(ctx, s.backend, storage.KeyCart, s.cart, 0) },
	)
	s.mu.Unlock()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart", slog.String("error", err.Error()))
		return fmt.Errorf("persist cart: %w", err)
	}

	s.publish()
	return nil
}

func (s *Store) publish() {
	if s.bus == nil {
		return
	}
	s.mu.Lock()
	ev := event.CartChanged{ItemCount: s.cart.ItemCount(), Total: s.cart.TotalPrice()}
	s.mu.Unlock()
	s.bus.Publish(ev)
}

// sanitize enforces the line invariants on data read back from storage:
// positive quantities and one line per key.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.ID == "" {
			item.ID = domain.CartItemKey(item.ProductID, item.Size)
		}
		if i, ok := seen[item.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
