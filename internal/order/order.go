// Package order reads order history and places orders from the cart.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KavinT06/anigas-attire-sub000/internal/apiclient"
	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/pagination"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

const collectionPath = "/ecom/orders/"

// CartSource is the part of the cart the checkout flow needs.
type CartSource interface {
	Items() []domain.CartItem
	Clear(ctx context.Context) error
}

// CreateRequest is the body of an order submission.
type CreateRequest struct {
	AddressID domain.FlexID      `json:"address" validate:"required"`
	Items     []domain.OrderItem `json:"items" validate:"required,min=1,dive"`
}

// Service talks to the orders endpoints.
type Service struct {
	api    *apiclient.Client
	cart   CartSource
	logger *slog.Logger
}

// NewService creates an order service. cart may be nil when Checkout is not
// used.
func NewService(api *apiclient.Client, cart CartSource, logger *slog.Logger) *Service {
	return &Service{api: api, cart: cart, logger: logger}
}

// List returns the customer's orders as the backend orders them.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := apiclient.CallList[domain.Order](ctx, s.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath,
	}).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListPage returns one page of the order history. Backends that do not
// paginate yield everything as a single page.
func (s *Service) ListPage(ctx context.Context, page int) (pagination.Page[domain.Order], error) {
	params := pagination.DefaultParams()
	if page > 1 {
		params.Page = page
	}
	res, err := apiclient.CallWith(ctx, s.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath,
		Query:  params.Query(),
	}, decodePage).Unwrap()
	if err != nil {
		return pagination.Page[domain.Order]{}, fmt.Errorf("list orders page %d: %w", params.Page, err)
	}
	return res, nil
}

func decodePage(body []byte) (pagination.Page[domain.Order], error) {
	var page pagination.Page[domain.Order]
	if err := json.Unmarshal(body, &page); err == nil && page.Results != nil {
		return page, nil
	}
	orders, err := compat.List[domain.Order](body)
	if err != nil {
		return pagination.Page[domain.Order]{}, err
	}
	return pagination.Page[domain.Order]{Count: len(orders), Results: orders}, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, apperrors.InvalidInput("order id is required")
	}
	o, err := apiclient.CallWith(ctx, s.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath + id + "/",
	}, compat.Object[domain.Order]).Unwrap()
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

// Create submits an order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Order, error) {
	if err := validator.Check(req); err != nil {
		return domain.Order{}, err
	}
	o, err := apiclient.CallWith(ctx, s.api, apiclient.Request{
		Method: http.MethodPost,
		Path:   collectionPath,
		Body:   req,
	}, compat.Object[domain.Order]).Unwrap()
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", o.ID.String()),
		slog.Int("items", len(req.Items)),
		slog.Float64("total", float64(o.Total)),
	)
	return o, nil
}

// Checkout places an order for every cart line, shipped to addressID, and
// empties the cart once the backend has accepted it. On failure the cart is
// left as it was.
func (s *Service) Checkout(ctx context.Context, addressID string) (domain.Order, error) {
	if s.cart == nil {
		return domain.Order{}, apperrors.Internal(fmt.Errorf("checkout: no cart configured"))
	}
	lines := s.cart.Items()
	if len(lines) == 0 {
		return domain.Order{}, apperrors.InvalidInput("your cart is empty")
	}

	req := CreateRequest{
		AddressID: domain.FlexID(addressID),
		Items:     make([]domain.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.Items = append(req.Items, domain.OrderItem{
			ProductID: domain.FlexID(line.ProductID),
			Name:      line.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Price:     domain.Amount(line.Price),
		})
	}

	o, err := s.Create(ctx, req)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.cart.Clear(ctx); err != nil {
		// The order exists; a stale cart is the lesser problem.
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("order_id", o.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return o, nil
}
