package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage/memory"
	"github.com/KavinT06/anigas-attire-sub000/internal/token"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httpclient"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
)

// fakeBackend accepts exactly one access token at a time and rotates it on
// every successful refresh.
type fakeBackend struct {
	mu           sync.Mutex
	validAccess  string
	validRefresh string
	nextAccess   string
	refreshDelay time.Duration
	rejectAll    bool
	refreshCalls atomic.Int32
	lastRequest  *http.Request
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if b.refreshDelay > 0 {
			select {
			case <-time.After(b.refreshDelay):
			case <-r.Context().Done():
				return
			}
		}
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		defer b.mu.Unlock()
		if body.Refresh == "" || body.Refresh != b.validRefresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		b.validAccess = b.nextAccess
		writeJSON(w, http.StatusOK, map[string]string{"access": b.nextAccess})
	})
	mux.HandleFunc("/ecom/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastRequest = r
		ok := !b.rejectAll && r.Header.Get("Authorization") == "Bearer "+b.validAccess
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"path": r.URL.Path})
	})
	return mux
}

func (b *fakeBackend) last() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	client  *Client
	tokens  *token.Store
	backend *fakeBackend
	expired *event.Bus[event.SessionExpired]
	metrics *Metrics
}

func newTestEnv(t *testing.T, cfg Config, b *fakeBackend) *testEnv {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	tokens := token.NewStore(memory.New(), 0, 0, logger.Discard())
	expired := event.NewBus[event.SessionExpired]()
	metrics := NewMetrics(nil)
	doer := httpclient.NewWithHTTPClient(srv.Client(), httpclient.DefaultConfig())

	return &testEnv{
		client:  New(cfg, doer, tokens, expired, metrics, logger.Discard()),
		tokens:  tokens,
		backend: b,
		expired: expired,
		metrics: metrics,
	}
}

// ============================================================================
// Credentials
// ============================================================================

func TestDo_AttachesBearerToken(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeBackend{validAccess: "a1"})
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	body, err := env.client.Get(ctx, "/ecom/address/")
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/ecom/address/"}`, string(body))

	assert.Equal(t, "Bearer a1", env.backend.last().Header.Get("Authorization"))
	assert.NotEmpty(t, env.backend.last().Header.Get("X-Request-ID"))
}

func TestDo_AnonymousUnauthorizedSkipsRefresh(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeBackend{validAccess: "a1"})
	published := 0
	env.expired.Subscribe(func(event.SessionExpired) { published++ })

	_, err := env.client.Get(context.Background(), "/ecom/orders/")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, "", env.backend.last().Header.Get("Authorization"))
	assert.Equal(t, int32(0), env.backend.refreshCalls.Load())
	assert.Equal(t, 0, published)
}

// ============================================================================
// Refresh protocol
// ============================================================================

func TestDo_RefreshesAndReplays(t *testing.T) {
	b := &fakeBackend{validAccess: "expired", validRefresh: "r1", nextAccess: "a2"}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	_, err := env.client.Get(ctx, "/ecom/wishlist/")
	require.NoError(t, err)

	assert.Equal(t, "a2", env.tokens.Access(ctx))
	assert.Equal(t, "r1", env.tokens.Refresh(ctx), "refresh kept when response omits it")
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, Idle, env.client.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.refreshes.WithLabelValues("success")))
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	b := &fakeBackend{
		validAccess:  "old-server",
		validRefresh: "r1",
		nextAccess:   "a2",
		refreshDelay: 50 * time.Millisecond,
	}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.client.Get(ctx, "/ecom/orders/")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, "a2", env.tokens.Access(ctx))
}

func TestDo_RefreshRejectedExpiresSession(t *testing.T) {
	b := &fakeBackend{validAccess: "other", validRefresh: "r-server"}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r-stale"))

	var events []event.SessionExpired
	env.expired.Subscribe(func(ev event.SessionExpired) { events = append(events, ev) })

	_, err := env.client.Get(ctx, "/ecom/address/")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Len(t, events, 1)
	assert.Error(t, events[0].Cause)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.refreshes.WithLabelValues("rejected")))
}

func TestDo_MissingRefreshTokenExpiresSession(t *testing.T) {
	b := &fakeBackend{validAccess: "other"}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", ""))

	published := 0
	env.expired.Subscribe(func(event.SessionExpired) { published++ })

	_, err := env.client.Get(ctx, "/ecom/address/")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 1, published)
	assert.Equal(t, int32(0), b.refreshCalls.Load())
}

func TestDo_SecondUnauthorizedIsTerminal(t *testing.T) {
	b := &fakeBackend{validRefresh: "r1", nextAccess: "a2", rejectAll: true}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	_, err := env.client.Get(ctx, "/ecom/orders/")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
}

func TestDo_RefreshTimeoutKeepsSession(t *testing.T) {
	b := &fakeBackend{
		validAccess:  "other",
		validRefresh: "r1",
		nextAccess:   "a2",
		refreshDelay: time.Second,
	}
	env := newTestEnv(t, Config{AuthTimeout: 30 * time.Millisecond}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	published := 0
	env.expired.Subscribe(func(event.SessionExpired) { published++ })

	_, err := env.client.Get(ctx, "/ecom/orders/")

	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.Equal(t, 0, published)
	assert.Equal(t, "a1", env.tokens.Access(ctx))
}

func TestAwaitFreshToken_UsesTokenRefreshedMeanwhile(t *testing.T) {
	b := &fakeBackend{validAccess: "a2"}
	env := newTestEnv(t, Config{}, b)
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a2", "r1"))

	fresh, err := env.client.awaitFreshToken(ctx, "a1")

	require.NoError(t, err)
	assert.Equal(t, "a2", fresh)
	assert.Equal(t, int32(0), b.refreshCalls.Load())
}

// stallingStore runs onRead once, after the access token has been read but
// before the value reaches the caller.
type stallingStore struct {
	storage.Store
	mu     sync.Mutex
	onRead func()
}

func (s *stallingStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Store.Get(ctx, key)
	if key != storage.KeyAccessToken {
		return data, err
	}
	s.mu.Lock()
	hook := s.onRead
	s.onRead = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return data, err
}

func TestAwaitFreshToken_StaleReadAfterFinishedRefresh(t *testing.T) {
	b := &fakeBackend{validAccess: "old-server", validRefresh: "r1", nextAccess: "a2"}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	store := &stallingStore{Store: memory.New()}
	tokens := token.NewStore(store, 0, 0, logger.Discard())
	c := New(Config{BaseURL: srv.URL + "/"}, httpclient.NewWithHTTPClient(srv.Client(), httpclient.DefaultConfig()),
		tokens, nil, NewMetrics(nil), logger.Discard())
	ctx := context.Background()
	require.NoError(t, tokens.SetPair(ctx, "a1", "r1"))

	// A first caller completes a whole refresh while the second one still
	// holds the stale token it just read.
	var first string
	var firstErr error
	store.onRead = func() {
		first, firstErr = c.awaitFreshToken(ctx, "a1")
	}

	fresh, err := c.awaitFreshToken(ctx, "a1")

	require.NoError(t, firstErr)
	require.NoError(t, err)
	assert.Equal(t, "a2", first)
	assert.Equal(t, "a2", fresh)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
}

// ============================================================================
// Errors and timeouts
// ============================================================================

func TestDo_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	tokens := token.NewStore(memory.New(), 0, 0, logger.Discard())
	c := New(Config{BaseURL: srv.URL}, httpclient.NewWithHTTPClient(srv.Client(), httpclient.DefaultConfig()),
		tokens, nil, nil, logger.Discard())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/slow", Timeout: 20 * time.Millisecond})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.True(t, apperrors.Retryable(err))
}

func TestDo_ValidationErrorCarriesFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"phone_number":    {"Enter a valid phone number."},
			"recaptcha_token": {"This field is required."},
		})
	}))
	t.Cleanup(srv.Close)

	tokens := token.NewStore(memory.New(), 0, 0, logger.Discard())
	c := New(Config{BaseURL: srv.URL}, httpclient.NewWithHTTPClient(srv.Client(), httpclient.DefaultConfig()),
		tokens, nil, nil, logger.Discard())

	_, err := c.Do(context.Background(), Request{
		Method:    http.MethodPost,
		Path:      "/auth/send-otp",
		Body:      map[string]string{"phone_number": "1"},
		Anonymous: true,
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Enter a valid phone number.", appErr.FieldMessage("phone_number"))
	assert.NotEmpty(t, appErr.Raw)
}

func TestDo_RecordsMetrics(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeBackend{validAccess: "a1"})
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	_, _ = env.client.Get(ctx, "/ecom/orders/")
	_, _ = env.client.Delete(ctx, "/ecom/orders/1/")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requests.WithLabelValues("DELETE", "2xx")))
}

// ============================================================================
// Result envelope
// ============================================================================

func TestCall_Result(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeBackend{validAccess: "a1"})
	ctx := context.Background()
	require.NoError(t, env.tokens.SetPair(ctx, "a1", "r1"))

	res := Call[struct {
		Path string `json:"path"`
	}](ctx, env.client, Request{Method: http.MethodGet, Path: "/ecom/address/"})

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, "/ecom/address/", res.Data.Path)

	require.NoError(t, env.tokens.Clear(ctx))
	failed := Call[map[string]any](ctx, env.client, Request{Method: http.MethodGet, Path: "/ecom/address/"})
	assert.False(t, failed.Success)
	assert.ErrorIs(t, failed.Err, apperrors.ErrUnauthorized)

	_, err := failed.Unwrap()
	assert.Error(t, err)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "error", statusClass(0))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "refreshing", Refreshing.String())
}
