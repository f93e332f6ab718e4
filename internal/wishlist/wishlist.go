// Package wishlist keeps the favorited products in sync with the backend.
//
// The backend is the source of truth. When its wishlist endpoint answers
// 404 the service switches to fallback mode and keeps items in local storage
// until a later load reaches the backend, at which point the local items are
// pushed up and the local copy is dropped.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/KavinT06/anigas-attire-sub000/internal/apiclient"
	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/optimistic"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

const (
	collectionPath = "/ecom/wishlist/"

	// DefaultDebounce suppresses non-forced loads this soon after a
	// successful one.
	DefaultDebounce = 2 * time.Second

	// FallbackNoticeID identifies the notice published on entering fallback mode.
	FallbackNoticeID = "wishlist-fallback"

	loadKey         = "load"
	authLoadTimeout = 30 * time.Second
)

// LoadState tracks the collection load.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// Buses are the event channels the service talks on. Any of them may be nil.
type Buses struct {
	Auth    *event.Bus[event.AuthChanged]
	Changed *event.Bus[event.WishlistChanged]
	Notices *event.Bus[event.Notice]
}

// Service synchronizes the wishlist. It is safe for concurrent use.
type Service struct {
	api      *apiclient.Client
	store    storage.Store
	buses    Buses
	metrics  *Metrics
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	loads singleflight.Group
	wg    sync.WaitGroup
	unsub func()

	mu         sync.Mutex
	items      []domain.WishlistItem
	fallback   bool
	state      LoadState
	lastLoaded time.Time
	generation uint64
}

// Option configures a Service.
type Option func(*Service)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) { s.debounce = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records load outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates the service. When buses.Auth is set the service resets on
// logout and reloads in the background on login; call Close to detach.
func New(api *apiclient.Client, store storage.Store, buses Buses, logger *slog.Logger, opts ...Option) *Service {
	if store == nil {
		store = storage.Noop{}
	}
	s := &Service{
		api:      api,
		store:    store,
		buses:    buses,
		logger:   logger,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if buses.Auth != nil {
		s.unsub = buses.Auth.Subscribe(s.onAuthChanged)
	}
	return s
}

// Close detaches from AuthChanged and waits for background loads.
func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.wg.Wait()
}

func (s *Service) onAuthChanged(ev event.AuthChanged) {
	if !ev.LoggedIn {
		s.Reset()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), authLoadTimeout)
		defer cancel()
		if err := s.Load(ctx, true); err != nil {
			s.logger.WarnContext(ctx, "wishlist load after login failed", slog.String("error", err.Error()))
		}
	}()
}

// Load fetches the collection. Unless force is set, a load already in flight
// is joined and a load within the debounce window of the last success is
// skipped.
func (s *Service) Load(ctx context.Context, force bool) error {
	if force {
		return s.load(ctx)
	}

	s.mu.Lock()
	fresh := s.state == Loaded && s.now().Sub(s.lastLoaded) < s.debounce
	s.mu.Unlock()
	if fresh {
		s.metrics.loads.WithLabelValues("skipped").Inc()
		return nil
	}

	ch := s.loads.DoChan(loadKey, func() (any, error) {
		return nil, s.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return apperrors.Network(ctx.Err())
	}
}

func (s *Service) load(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	prev := s.state
	s.state = Loading
	s.mu.Unlock()

	res := apiclient.CallList[domain.WishlistItem](ctx, s.api, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath,
	})

	switch {
	case res.Success:
		items := s.migrate(ctx, res.Data)
		if !s.commitLoad(gen, items, false) {
			return nil
		}
		s.metrics.loads.WithLabelValues("remote").Inc()
		s.logger.DebugContext(ctx, "wishlist loaded", slog.Int("items", len(items)))
		return nil

	case errors.Is(res.Err, apperrors.ErrNotFound):
		items := s.readCache(ctx)
		entered := !s.isFallback()
		if !s.commitLoad(gen, items, true) {
			return nil
		}
		s.metrics.loads.WithLabelValues("fallback").Inc()
		if entered {
			s.announceFallback(ctx)
		}
		return nil

	case errors.Is(res.Err, apperrors.ErrUnauthorized):
		s.metrics.loads.WithLabelValues("error").Inc()
		s.Reset()
		return res.Err

	default:
		s.metrics.loads.WithLabelValues("error").Inc()
		s.mu.Lock()
		if s.generation == gen && s.state == Loading {
			s.state = prev
		}
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "wishlist load failed", slog.String("error", res.Err.Error()))
		return fmt.Errorf("load wishlist: %w", res.Err)
	}
}

// commitLoad installs a load result unless the state was reset meanwhile.
func (s *Service) commitLoad(gen uint64, items []domain.WishlistItem, fallback bool) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.items = items
	s.fallback = fallback
	s.state = Loaded
	s.lastLoaded = s.now()
	s.mu.Unlock()

	s.publishChanged()
	return true
}

// migrate pushes locally saved items the backend does not know about and
// returns the merged collection. Items that fail to upload stay in the local
// cache for the next attempt.
func (s *Service) migrate(ctx context.Context, remote []domain.WishlistItem) []domain.WishlistItem {
	cached := s.readCache(ctx)
	if len(cached) == 0 {
		return remote
	}

	var pending []domain.WishlistItem
	for _, item := range cached {
		key := item.ProductKey()
		if indexOf(remote, key) >= 0 {
			continue
		}
		created, err := s.addRemote(ctx, key, item.Product)
		if err != nil {
			s.logger.WarnContext(ctx, "wishlist migration failed",
				slog.String("product_id", key),
				slog.String("error", err.Error()),
			)
			pending = append(pending, item)
			continue
		}
		s.metrics.migrated.Inc()
		remote = append(remote, created)
	}

	if len(pending) > 0 {
		if err := s.writeCache(ctx, pending); err != nil {
			s.logger.WarnContext(ctx, "failed to keep unmigrated wishlist items", slog.String("error", err.Error()))
		}
	} else if err := s.store.Delete(ctx, storage.KeyWishlist); err != nil {
		s.logger.WarnContext(ctx, "failed to drop local wishlist", slog.String("error", err.Error()))
	}
	s.logger.InfoContext(ctx, "local wishlist migrated",
		slog.Int("migrated", len(cached)-len(pending)),
		slog.Int("pending", len(pending)),
	)
	return remote
}

// Add favorites productID. snapshot, when given, is kept as the item's
// product details. Adding a member is a successful no-op.
func (s *Service) Add(ctx context.Context, productID string, snapshot *domain.Product) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if s.IsMember(productID) {
		return nil
	}
	gen := s.currentGeneration()

	if !s.isFallback() {
		item, err := s.addRemote(ctx, productID, snapshot)
		switch {
		case err == nil:
			if !s.appendItem(item, gen) {
				s.logger.InfoContext(ctx, "wishlist reset during add, item not kept", slog.String("product_id", productID))
				return nil
			}
			s.logger.InfoContext(ctx, "wishlist item added", slog.String("product_id", productID))
			return nil
		case errors.Is(err, apperrors.ErrNotFound):
			s.enterFallback(ctx)
		default:
			return fmt.Errorf("add to wishlist: %w", err)
		}
	}
	return s.addLocal(ctx, productID, snapshot)
}

func (s *Service) addRemote(ctx context.Context, productID string, snapshot *domain.Product) (domain.WishlistItem, error) {
	res := apiclient.CallWith(ctx, s.api, apiclient.Request{
		Method: http.MethodPost,
		Path:   collectionPath,
		Body:   map[string]any{"product": domain.FlexID(productID)},
	}, compat.Object[domain.WishlistItem])
	if !res.Success {
		if errors.Is(res.Err, compat.ErrNoMatch) {
			// Accepted without a usable body.
			return s.synthesize(productID, snapshot), nil
		}
		return domain.WishlistItem{}, res.Err
	}

	item := res.Data
	if item.Product == nil && snapshot != nil {
		p := *snapshot
		item.Product = &p
	}
	if !item.Matches(productID) {
		item.ProductID = domain.FlexID(productID)
	}
	return item, nil
}

func (s *Service) addLocal(ctx context.Context, productID string, snapshot *domain.Product) error {
	item := s.synthesize(productID, snapshot)

	s.mu.Lock()
	tx := optimistic.Begin(cloneItems(s.items), s.restoreFor(s.generation))
	defer tx.Rollback()
	s.items = append(s.items, item)
	items := cloneItems(s.items)
	s.mu.Unlock()

	if err := s.writeCache(ctx, items); err != nil {
		return fmt.Errorf("save wishlist locally: %w", err)
	}
	tx.Commit()

	s.publishChanged()
	s.logger.InfoContext(ctx, "wishlist item saved locally", slog.String("product_id", productID))
	return nil
}

// Remove unfavorites productID. The item disappears immediately; if the
// backend rejects the removal it is put back and the error returned.
func (s *Service) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	idx := indexOf(s.items, productID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	tx := optimistic.Begin(cloneItems(s.items), s.restoreFor(s.generation))
	target := s.items[idx]
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	remaining := cloneItems(s.items)
	fallback := s.fallback
	s.mu.Unlock()

	s.publishChanged()
	defer func() {
		if tx.Rollback() {
			s.publishChanged()
		}
	}()

	if fallback {
		if err := s.writeCache(ctx, remaining); err != nil {
			return fmt.Errorf("save wishlist locally: %w", err)
		}
		tx.Commit()
		return nil
	}

	if _, err := s.api.Delete(ctx, collectionPath+target.RemoteID()+"/"); err != nil {
		s.logger.WarnContext(ctx, "wishlist removal failed, restoring item",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	tx.Commit()
	s.logger.InfoContext(ctx, "wishlist item removed", slog.String("product_id", productID))
	return nil
}

// Toggle adds productID when it is not a member and removes it otherwise.
// It reports whether the product is a member afterwards.
func (s *Service) Toggle(ctx context.Context, productID string, snapshot *domain.Product) (bool, error) {
	if s.IsMember(productID) {
		if err := s.Remove(ctx, productID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Add(ctx, productID, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// IsMember reports whether productID is favorited.
func (s *Service) IsMember(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.items, productID) >= 0
}

// Items returns a copy of the collection.
func (s *Service) Items() []domain.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// FallbackMode reports whether items are kept locally.
func (s *Service) FallbackMode() bool {
	return s.isFallback()
}

// State returns the load state.
func (s *Service) State() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset forgets everything held in memory. Loads still in flight are
// discarded when they finish.
func (s *Service) Reset() {
	s.mu.Lock()
	s.items = nil
	s.fallback = false
	s.state = NotLoaded
	s.lastLoaded = time.Time{}
	s.generation++
	s.mu.Unlock()
	s.loads.Forget(loadKey)

	s.publishChanged()
}

func (s *Service) isFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

func (s *Service) enterFallback(ctx context.Context) {
	s.mu.Lock()
	entered := !s.fallback
	s.fallback = true
	s.mu.Unlock()
	if entered {
		s.announceFallback(ctx)
	}
}

func (s *Service) announceFallback(ctx context.Context) {
	s.logger.InfoContext(ctx, "wishlist endpoint unavailable, saving favorites locally")
	if s.buses.Notices != nil {
		s.buses.Notices.Publish(event.Notice{
			ID:      FallbackNoticeID,
			Level:   event.NoticeInfo,
			Message: "Wishlist sync is unavailable right now. Favorites are saved on this device.",
		})
	}
}

// appendItem adds item unless a Reset happened since gen was taken. It
// reports whether the item is in the collection afterwards.
func (s *Service) appendItem(item domain.WishlistItem, gen uint64) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	added := indexOf(s.items, item.ProductKey()) < 0
	if added {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()
	if added {
		s.publishChanged()
	}
	return true
}

// restoreFor returns a rollback that puts items back only while the
// collection still belongs to generation gen.
func (s *Service) restoreFor(gen uint64) func([]domain.WishlistItem) {
	return func(items []domain.WishlistItem) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen {
			s.items = items
		}
	}
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Service) synthesize(productID string, snapshot *domain.Product) domain.WishlistItem {
	item := domain.WishlistItem{
		ID:        domain.FlexID(uuid.NewString()),
		ProductID: domain.FlexID(productID),
		CreatedAt: s.now().UTC(),
	}
	if snapshot != nil {
		p := *snapshot
		item.Product = &p
	}
	return item
}

func (s *Service) readCache(ctx context.Context) []domain.WishlistItem {
	var items []domain.WishlistItem
	err := storage.GetJSON(ctx, s.store, storage.KeyWishlist, &items)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "discarding unreadable local wishlist", slog.String("error", err.Error()))
		return nil
	}
	return items
}

func (s *Service) writeCache(ctx context.Context, items []domain.WishlistItem) error {
	return storage.SetJSON(ctx, s.store, storage.KeyWishlist, items, 0)
}

func (s *Service) publishChanged() {
	if s.buses.Changed == nil {
		return
	}
	s.mu.Lock()
	ev := event.WishlistChanged{Count: len(s.items), Fallback: s.fallback}
	s.mu.Unlock()
	s.buses.Changed.Publish(ev)
}

func indexOf(items []domain.WishlistItem, productID string) int {
	for i := range items {
		if items[i].Matches(productID) {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.WishlistItem) []domain.WishlistItem {
	if items == nil {
		return nil
	}
	out := make([]domain.WishlistItem, len(items))
	for i, item := range items {
		if item.Product != nil {
			p := *item.Product
			item.Product = &p
		}
		out[i] = item
	}
	return out
}
