package mockbackend

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httputil"
)

func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	httputil.WriteJSON(w, http.StatusOK, nonNil(s.accountFor(r).wishlist))
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product domain.FlexID `json:"product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Product == "" {
		httputil.WriteFieldErrors(w, map[string][]string{"product": {"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	for _, item := range acct.wishlist {
		if item.Matches(req.Product.String()) {
			httputil.WriteJSON(w, http.StatusOK, item)
			return
		}
	}

	p := s.product(req.Product.String())
	item := domain.WishlistItem{
		ID:        s.newID(),
		Product:   &p,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	acct.wishlist = append(acct.wishlist, item)
	httputil.WriteJSON(w, http.StatusCreated, item)
}

// handleDeleteWishlist accepts either the wishlist item id or the product id.
func (s *Server) handleDeleteWishlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	idx := -1
	for i, item := range acct.wishlist {
		if item.ID.String() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, item := range acct.wishlist {
			if item.Matches(id) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	acct.wishlist = append(acct.wishlist[:idx], acct.wishlist[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}
