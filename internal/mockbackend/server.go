// Package mockbackend is an in-memory stand-in for the storefront REST
// backend. It serves the request and response shapes the client consumes and
// keeps everything in memory. Package tests and `storefront mock-backend` use it.
package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/pkg/health"
	"github.com/KavinT06/anigas-attire-sub000/pkg/middleware"
)

// Config tunes the fake backend.
type Config struct {
	// OTP is the code every phone must present. Defaults to "1234".
	OTP string
	// SigningKey signs issued access tokens.
	SigningKey string
	// AccessTTL is the lifetime of issued access tokens. Defaults to 15m.
	AccessTTL time.Duration
	// OmitRefresh makes login respond with an access token only.
	OmitRefresh bool
	// DisableWishlist makes every wishlist endpoint answer 404.
	DisableWishlist bool
}

type account struct {
	user      domain.User
	addresses []domain.Address
	wishlist  []domain.WishlistItem
	orders    []domain.Order
}

// Server is the fake backend. Its zero value is not usable; call New.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router chi.Router
	health *health.Registry

	mu           sync.Mutex
	accounts     map[string]*account // by phone
	access       map[string]string   // access token -> phone
	refresh      map[string]string   // refresh token -> phone
	otpSent      map[string]bool
	usedCaptchas map[string]bool
	catalog      map[string]domain.Product
	nextID       int

	wishlistDisabled atomic.Bool
	refreshCalls     atomic.Int64
}

// New builds a fake backend.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.OTP == "" {
		cfg.OTP = "1234"
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = "mock-backend-signing-key"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		accounts:     make(map[string]*account),
		access:       make(map[string]string),
		refresh:      make(map[string]string),
		otpSent:      make(map[string]bool),
		usedCaptchas: make(map[string]bool),
		catalog:      defaultCatalog(),
		nextID:       100,
	}
	s.wishlistDisabled.Store(cfg.DisableWishlist)
	s.health = health.NewRegistry()
	s.health.Register("catalog", s.checkCatalog)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the backend under /api.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr and blocks until ctx is canceled, then shuts the
// server down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock backend listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mock backend: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mock backend shutdown: %w", err)
	}
	s.logger.Info("mock backend stopped")
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogging(s.logger))
	r.Use(middleware.Tracing("mockbackend"))
	r.Use(middleware.Recovery(s.logger))

	r.Get("/health/live", s.health.LivenessHandler())
	r.Get("/health/ready", s.health.ReadinessHandler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/send-otp", s.handleSendOTP)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.validateAccess))

			r.Get("/ecom/address/", s.handleListAddresses)
			r.Post("/ecom/address/", s.handleCreateAddress)
			r.Get("/ecom/address/{id}/", s.handleGetAddress)
			r.Put("/ecom/address/{id}/", s.handleUpdateAddress)
			r.Patch("/ecom/address/{id}/", s.handleUpdateAddress)
			r.Delete("/ecom/address/{id}/", s.handleDeleteAddress)

			r.Group(func(r chi.Router) {
				r.Use(s.wishlistGate)
				r.Get("/ecom/wishlist/", s.handleListWishlist)
				r.Post("/ecom/wishlist/", s.handleAddWishlist)
				r.Delete("/ecom/wishlist/{id}/", s.handleDeleteWishlist)
			})

			r.Get("/ecom/orders/", s.handleListOrders)
			r.Post("/ecom/orders/", s.handleCreateOrder)
			r.Get("/ecom/orders/{id}/", s.handleGetOrder)
		})
	})
	return r
}

// ExpireAccessTokens invalidates every issued access token. Refresh tokens
// stay valid, so the next authenticated call has to refresh.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// SetWishlistEnabled toggles the wishlist endpoints.
func (s *Server) SetWishlistEnabled(enabled bool) {
	s.wishlistDisabled.Store(!enabled)
}

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Wishlist returns a copy of the wishlist stored for phone.
func (s *Server) Wishlist(phone string) []domain.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[phone]
	if !ok {
		return nil
	}
	return append([]domain.WishlistItem(nil), acct.wishlist...)
}

// AddProduct registers a product in the catalog.
func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[p.ID.String()] = p
}

func (s *Server) wishlistGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.wishlistDisabled.Load() {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkCatalog(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.catalog) == 0 {
		return errors.New("catalog is empty")
	}
	return nil
}

func newAccount(phone string) *account {
	return &account{user: domain.User{ID: domain.FlexID(phone), Name: "Customer", PhoneNumber: phone}}
}

// accountFor returns the account of the authenticated caller. s.mu must be held.
func (s *Server) accountFor(r *http.Request) *account {
	phone := middleware.UserIDFromContext(r.Context())
	acct, ok := s.accounts[phone]
	if !ok {
		acct = newAccount(phone)
		s.accounts[phone] = acct
	}
	return acct
}

// newID returns the next numeric id. s.mu must be held.
func (s *Server) newID() domain.FlexID {
	s.nextID++
	return domain.FlexID(strconv.Itoa(s.nextID))
}

func defaultCatalog() map[string]domain.Product {
	products := []domain.Product{
		{ID: "1", Name: "Linen Kurta", StartPrice: 1299, Category: "Kurtas", Image: "/media/kurta.jpg"},
		{ID: "2", Name: "Silk Saree", StartPrice: 4599, Category: "Sarees", Image: "/media/saree.jpg"},
		{ID: "42", Name: "Block Print Dupatta", StartPrice: 799, Category: "Dupattas", Image: "/media/dupatta.jpg"},
	}
	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID.String()] = p
	}
	return catalog
}

// product looks up id, inventing a generic entry for unknown ids. s.mu must be held.
func (s *Server) product(id string) domain.Product {
	if p, ok := s.catalog[id]; ok {
		return p
	}
	return domain.Product{ID: domain.FlexID(id), Name: "Product " + id, StartPrice: 499}
}
