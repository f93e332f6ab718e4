package mockbackend

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httputil"
	"github.com/KavinT06/anigas-attire-sub000/pkg/pagination"
)

type createOrderRequest struct {
	Address domain.FlexID      `json:"address"`
	Items   []domain.OrderItem `json:"items"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Newest first, like the real listing.
	orders := s.accountFor(r).orders
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		out[len(orders)-1-i] = o
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(r, out, pagination.FromRequest(r)))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.accountFor(r).orders {
		if o.ID.String() == id {
			httputil.WriteJSON(w, http.StatusOK, o)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	fields := map[string][]string{}
	if len(req.Items) == 0 {
		fields["items"] = []string{"Order must contain at least one item."}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			fields["items"] = append(fields["items"], "Quantity must be at least 1.")
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	if findAddress(acct.addresses, req.Address.String()) < 0 {
		fields["address"] = []string{"Invalid address."}
	}
	if len(fields) > 0 {
		httputil.WriteFieldErrors(w, fields)
		return
	}

	var total float64
	for i, item := range req.Items {
		if item.Name == "" {
			req.Items[i].Name = s.product(item.ProductID.String()).Name
		}
		total += float64(item.Price) * float64(item.Quantity)
	}
	order := domain.Order{
		ID:        s.newID(),
		Status:    "pending",
		Total:     domain.Amount(total),
		AddressID: req.Address,
		Items:     req.Items,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	acct.orders = append(acct.orders, order)
	httputil.WriteJSON(w, http.StatusCreated, order)
}
