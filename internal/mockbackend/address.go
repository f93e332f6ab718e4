package mockbackend

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httputil"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	httputil.WriteJSON(w, http.StatusOK, nonNil(acct.addresses))
}

func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	i := findAddress(acct.addresses, chi.URLParam(r, "id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct.addresses[i])
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.Address
	if err := validator.DecodeAndValidate(r, &addr); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	addr.ID = s.newID()
	if len(acct.addresses) == 0 {
		addr.IsDefault = true
	}
	acct.addresses = append(acct.addresses, addr)
	if addr.IsDefault {
		setDefault(acct.addresses, addr.ID.String())
	}
	httputil.WriteJSON(w, http.StatusCreated, addr)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	i := findAddress(acct.addresses, id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	updated := acct.addresses[i]
	if r.Method == http.MethodPut {
		updated = domain.Address{}
	}
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := validator.Validate(updated); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	updated.ID = acct.addresses[i].ID
	acct.addresses[i] = updated
	if updated.IsDefault {
		setDefault(acct.addresses, id)
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountFor(r)
	i := findAddress(acct.addresses, chi.URLParam(r, "id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	wasDefault := acct.addresses[i].IsDefault
	acct.addresses = append(acct.addresses[:i], acct.addresses[i+1:]...)
	if wasDefault && len(acct.addresses) > 0 {
		acct.addresses[0].IsDefault = true
	}
	w.WriteHeader(http.StatusNoContent)
}

func findAddress(addrs []domain.Address, id string) int {
	for i := range addrs {
		if addrs[i].ID.String() == id {
			return i
		}
	}
	return -1
}

func setDefault(addrs []domain.Address, id string) {
	for i := range addrs {
		addrs[i].IsDefault = addrs[i].ID.String() == id
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	httputil.WriteDetail(w, status, detail)
}
