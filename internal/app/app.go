package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KavinT06/anigas-attire-sub000/internal/address"
	"github.com/KavinT06/anigas-attire-sub000/internal/apiclient"
	"github.com/KavinT06/anigas-attire-sub000/internal/auth"
	"github.com/KavinT06/anigas-attire-sub000/internal/cart"
	"github.com/KavinT06/anigas-attire-sub000/internal/config"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/notice"
	"github.com/KavinT06/anigas-attire-sub000/internal/order"
	"github.com/KavinT06/anigas-attire-sub000/internal/recaptcha"
	"github.com/KavinT06/anigas-attire-sub000/internal/session"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	boltstore "github.com/KavinT06/anigas-attire-sub000/internal/storage/bolt"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage/memory"
	redisstore "github.com/KavinT06/anigas-attire-sub000/internal/storage/redis"
	"github.com/KavinT06/anigas-attire-sub000/internal/token"
	"github.com/KavinT06/anigas-attire-sub000/internal/wishlist"
	"github.com/KavinT06/anigas-attire-sub000/pkg/health"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httpclient"
	"github.com/KavinT06/anigas-attire-sub000/pkg/tracing"
)

const healthProbeKey = "health:probe"

// App wires together all storefront services.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *event.Hub
	Metrics  *prometheus.Registry
	Store    storage.Store
	Tokens   *token.Store
	API      *apiclient.Client
	Sessions *session.Manager
	Guard    *session.Guard
	Auth     *auth.Service
	Captcha  recaptcha.Provider

	Cart      *cart.Store
	Wishlist  *wishlist.Service
	Addresses *address.Book
	Orders    *order.Service
	Notices   *notice.Center
	Health    *health.Registry

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	store storage.Store
	doer  apiclient.Doer
}

// WithStore uses s instead of the configured storage backend.
func WithStore(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

// WithDoer sends API traffic through d instead of the default transport.
func WithDoer(d apiclient.Doer) Option {
	return func(o *options) { o.doer = d }
}

// New creates the application, opening storage and restoring the session
// and cart from it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Hub:     event.NewHub(),
		Metrics: prometheus.NewRegistry(),
		Health:  health.NewRegistry(),
	}

	tc := tracing.DefaultConfig("storefront")
	tc.Environment = cfg.Environment
	tc.OTLPEndpoint = cfg.OTELEndpoint
	tc.SampleRate = cfg.OTELSampleRate
	tc.Enabled = cfg.OTELEnabled
	shutdownTracing, err := tracing.InitTracer(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(flushCtx)
	})

	a.Store = o.store
	if a.Store == nil {
		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Store = store
		if closeStore != nil {
			a.closers = append(a.closers, closeStore)
		}
	}

	doer := o.doer
	if doer == nil {
		doer = newTransport(cfg, a.Metrics, logger)
	}

	a.Tokens = token.NewStore(a.Store, cfg.AccessTTL, cfg.RefreshTTL, logger)
	a.API = apiclient.New(apiclient.Config{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.RequestTimeout,
		AuthTimeout: cfg.AuthTimeout,
	}, doer, a.Tokens, a.Hub.SessionExpired, apiclient.NewMetrics(a.Metrics), logger)

	a.Sessions = session.NewManager(a.Tokens, a.Store, a.Hub.Auth, logger)
	a.Guard = session.NewGuard(a.Sessions)
	a.closers = append(a.closers, func() error { a.Guard.Close(); return nil })
	a.Auth = auth.NewService(a.API, a.Tokens, a.Store, a.Sessions, a.Hub.SessionExpired, cfg.OTPInterval, logger)
	a.closers = append(a.closers, func() error { a.Auth.Close(); return nil })

	switch {
	case cfg.DevRecaptcha:
		a.Captcha = recaptcha.Dev{}
	default:
		a.Captcha = recaptcha.NewOneShot(cfg.RecaptchaToken)
	}

	a.Cart = cart.New(a.Store, a.Hub.Cart, logger)
	a.Wishlist = wishlist.New(a.API, a.Store, wishlist.Buses{
		Auth:    a.Hub.Auth,
		Changed: a.Hub.Wishlist,
		Notices: a.Hub.Notices,
	}, logger, wishlist.WithDebounce(cfg.WishlistDebounce), wishlist.WithMetrics(wishlist.NewMetrics(a.Metrics)))
	a.closers = append(a.closers, func() error { a.Wishlist.Close(); return nil })

	a.Addresses = address.NewBook(a.API, logger)
	a.Orders = order.NewService(a.API, a.Cart, logger)
	a.Notices = notice.NewCenter(a.Hub.Notices, memory.New(), logger)
	a.closers = append(a.closers, func() error { a.Notices.Close(); return nil })

	// A forced logout wipes the store; the in-memory cart follows it.
	unsubCart := a.Hub.Auth.Subscribe(func(ev event.AuthChanged) {
		if !ev.LoggedIn {
			if err := a.Cart.Load(context.Background()); err != nil {
				logger.Warn("failed to reload cart", slog.String("error", err.Error()))
			}
		}
	})
	a.closers = append(a.closers, func() error { unsubCart(); return nil })

	a.registerHealthChecks(doer)

	if err := a.Cart.Load(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("restore cart: %w", err)
	}
	a.Sessions.CheckStatus(ctx)

	return a, nil
}

// Close releases storage and flushes telemetry. Closers run in reverse
// order of registration.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Gatherer exposes the app collectors together with the process-wide ones
// (circuit breaker state).
func (a *App) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{a.Metrics, prometheus.DefaultGatherer}
}

func (a *App) registerHealthChecks(doer apiclient.Doer) {
	a.Health.Register("storage", func(ctx context.Context) error {
		if _, err := a.Store.Get(ctx, healthProbeKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return nil
	})
	a.Health.RegisterNonCritical("backend", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Config.APIBaseURL, http.NoBody)
		if err != nil {
			return err
		}
		// Any HTTP answer means the backend is reachable.
		resp, err := doer.Do(ctx, req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
}

func newTransport(cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) apiclient.Doer {
	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.RequestTimeout + cfg.AuthTimeout
	client := httpclient.New(hc)
	if !cfg.CircuitBreaker {
		return client
	}
	cb := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	cb.Registerer = reg
	return httpclient.NewCircuitBreakerClient(client, cb, logger)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), nil, nil

	case config.StorageNone:
		return storage.Noop{}, nil, nil

	case config.StorageRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		s, err := redisstore.Dial(dialCtx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis storage: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return s, s.Close, nil

	default:
		path, err := cfg.ResolvedStatePath()
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create state dir: %w", err)
		}
		s, err := boltstore.Open(path, cfg.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("open state file: %w", err)
		}
		logger.Debug("opened state file", slog.String("path", path))
		return s, s.Close, nil
	}
}
