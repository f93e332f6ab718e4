// Package address manages the customer's saved shipping addresses.
package address

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/KavinT06/anigas-attire-sub000/internal/apiclient"
	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/internal/optimistic"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

const collectionPath = "/ecom/address/"

func resourcePath(id string) string {
	return collectionPath + id + "/"
}

// Book is the address book client. It keeps the last listed collection so
// deletes can be applied optimistically.
type Book struct {
	api    *apiclient.Client
	logger *slog.Logger

	mu        sync.Mutex
	addresses []domain.Address
}

// NewBook creates an address book client.
func NewBook(api *apiclient.Client, logger *slog.Logger) *Book {
	return &Book{api: api, logger: logger}
}

// List fetches every saved address.
func (b *Book) List(ctx context.Context) ([]domain.Address, error) {
	addrs, err := apiclient.CallList[domain.Address](ctx, b.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath,
	}).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	b.mu.Lock()
	b.addresses = append([]domain.Address(nil), addrs...)
	b.mu.Unlock()
	return addrs, nil
}

// Get fetches one address.
func (b *Book) Get(ctx context.Context, id string) (domain.Address, error) {
	if id == "" {
		return domain.Address{}, apperrors.InvalidInput("address id is required")
	}
	addr, err := apiclient.CallWith(ctx, b.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   resourcePath(id),
	}, compat.Object[domain.Address]).Unwrap()
	if err != nil {
		return domain.Address{}, fmt.Errorf("get address %s: %w", id, err)
	}
	return addr, nil
}

// Create validates and saves a new address.
func (b *Book) Create(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if err := validator.Check(addr); err != nil {
		return domain.Address{}, err
	}
	addr.ID = ""

	created, err := apiclient.CallWith(ctx, b.api, apiclient.Request{
		Method: http.MethodPost,
		Path:   collectionPath,
		Body:   addr,
	}, compat.Object[domain.Address]).Unwrap()
	if err != nil {
		return domain.Address{}, fmt.Errorf("create address: %w", err)
	}

	b.mu.Lock()
	if created.IsDefault {
		clearDefault(b.addresses)
	}
	b.addresses = append(b.addresses, created)
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "address created", slog.String("address_id", created.ID.String()))
	return created, nil
}

// Update replaces the address stored under id.
func (b *Book) Update(ctx context.Context, id string, addr domain.Address) (domain.Address, error) {
	if id == "" {
		return domain.Address{}, apperrors.InvalidInput("address id is required")
	}
	if err := validator.Check(addr); err != nil {
		return domain.Address{}, err
	}
	addr.ID = domain.FlexID(id)

	updated, err := apiclient.CallWith(ctx, b.api, apiclient.Request{
		Method: http.MethodPut,
		Path:   resourcePath(id),
		Body:   addr,
	}, compat.Object[domain.Address]).Unwrap()
	if err != nil {
		return domain.Address{}, fmt.Errorf("update address %s: %w", id, err)
	}
	b.replace(updated)
	return updated, nil
}

// SetDefault marks id as the default shipping address. The address is
// fetched and written back whole with PUT.
func (b *Book) SetDefault(ctx context.Context, id string) (domain.Address, error) {
	addr, err := b.Get(ctx, id)
	if err != nil {
		return domain.Address{}, err
	}
	if addr.IsDefault {
		b.replace(addr)
		return addr, nil
	}
	addr.IsDefault = true
	updated, err := b.Update(ctx, id, addr)
	if err != nil {
		return domain.Address{}, fmt.Errorf("set default address %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes an address. It disappears from Cached at once and comes back
// if the backend refuses.
func (b *Book) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("address id is required")
	}

	b.mu.Lock()
	tx := optimistic.Begin(append([]domain.Address(nil), b.addresses...), func(prev []domain.Address) {
		b.mu.Lock()
		b.addresses = prev
		b.mu.Unlock()
	})
	kept := b.addresses[:0:0]
	for _, a := range b.addresses {
		if a.ID.String() != id {
			kept = append(kept, a)
		}
	}
	b.addresses = kept
	b.mu.Unlock()
	defer tx.Rollback()

	if _, err := b.api.Delete(ctx, resourcePath(id)); err != nil {
		b.logger.WarnContext(ctx, "address delete failed", slog.String("address_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete address %s: %w", id, err)
	}
	tx.Commit()
	return nil
}

// Cached returns the addresses known from the last List, adjusted by later
// calls on this client.
func (b *Book) Cached() []domain.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Address(nil), b.addresses...)
}

// Default returns the default address from the cached collection.
func (b *Book) Default() (domain.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return domain.Address{}, false
}

func (b *Book) replace(updated domain.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if updated.IsDefault {
		clearDefault(b.addresses)
	}
	for i := range b.addresses {
		if b.addresses[i].ID == updated.ID {
			b.addresses[i] = updated
			return
		}
	}
	b.addresses = append(b.addresses, updated)
}

func clearDefault(addrs []domain.Address) {
	for i := range addrs {
		addrs[i].IsDefault = false
	}
}
