// Package apiclient is the authenticated HTTP client for the storefront
// backend. It attaches bearer credentials and runs the refresh protocol when
// the backend rejects an expired access token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/token"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/httpclient"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
	"github.com/KavinT06/anigas-attire-sub000/pkg/tracing"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultAuthTimeout = 10 * time.Second
	DefaultRefreshPath = "/auth/refresh"

	maxResponseBody = 10 << 20
	refreshKey      = "refresh"
)

// Doer sends a prepared request. *httpclient.Client and
// *httpclient.CircuitBreakerClient both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// RefreshState is the process-wide state of the refresh protocol.
type RefreshState int32

const (
	Idle RefreshState = iota
	Refreshing
)

func (s RefreshState) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Config holds API client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	AuthTimeout time.Duration
	RefreshPath string
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded when non-nil.
	Body any
	// Timeout overrides the default deadline for this call.
	Timeout time.Duration
	// Anonymous requests carry no bearer credential and never trigger a
	// refresh. Used by the login flow itself.
	Anonymous bool
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	doer    Doer
	tokens  *token.Store
	expired *event.Bus[event.SessionExpired]
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	refreshGroup singleflight.Group
	state        atomic.Int32
}

// New creates an API client. expired receives a SessionExpired event each
// time the refresh protocol gives up.
func New(cfg Config, doer Doer, tokens *token.Store, expired *event.Bus[event.SessionExpired], metrics *Metrics, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Client{
		cfg:     cfg,
		doer:    doer,
		tokens:  tokens,
		expired: expired,
		metrics: metrics,
		tracer:  tracing.Tracer("storefront/apiclient"),
		logger:  logger,
	}
}

// State reports whether a refresh is currently in flight.
func (c *Client) State() RefreshState {
	return RefreshState(c.state.Load())
}

// Do performs r and returns the body of a 2xx response. Failures come back as
// *apperrors.AppError values.
//
// A 401 on an authenticated request runs the refresh protocol and replays the
// request once with the new access token. A 401 on the replay is final.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	payload, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}

	var access string
	if !r.Anonymous {
		access = c.tokens.Access(ctx)
	}

	body, err := c.send(ctx, r, payload, access)
	if err == nil || r.Anonymous || access == "" || !errors.Is(err, apperrors.ErrUnauthorized) {
		return body, err
	}

	fresh, err := c.awaitFreshToken(ctx, access)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, r, payload, fresh)
}

// Get is shorthand for a GET request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post is shorthand for a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Delete is shorthand for a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// awaitFreshToken returns an access token newer than stale, joining the
// in-flight refresh or starting one. Waiters stop waiting when their own
// context ends but the refresh itself carries on.
func (c *Client) awaitFreshToken(ctx context.Context, stale string) (string, error) {
	if current := c.tokens.Access(ctx); current != "" && current != stale {
		return current, nil
	}

	ch := c.refreshGroup.DoChan(refreshKey, func() (any, error) {
		// A flight that finished between the check above and DoChan has
		// already rotated the token.
		rctx := context.WithoutCancel(ctx)
		if current := c.tokens.Access(rctx); current != "" && current != stale {
			return current, nil
		}
		return c.refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", apperrors.Network(ctx.Err())
	}
}

// refresh trades the stored refresh token for a new access token. A
// rejected or unusable refresh publishes SessionExpired. Network failures
// and 5xx answers are returned as is and the session is kept, so a backend
// outage does not sign the user out.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.state.Store(int32(Refreshing))
	defer c.state.Store(int32(Idle))

	refreshToken := c.tokens.Refresh(ctx)
	if refreshToken == "" {
		err := apperrors.Unauthorized("session expired, please log in again")
		c.expire(ctx, "missing_refresh", err)
		return "", err
	}

	req := Request{
		Method:    http.MethodPost,
		Path:      c.cfg.RefreshPath,
		Anonymous: true,
		Timeout:   c.cfg.AuthTimeout,
	}
	payload, err := encodeBody(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}

	body, err := c.send(ctx, req, payload, "")
	if err != nil {
		if errors.Is(err, apperrors.ErrNetwork) || apperrors.HTTPStatus(err) >= 500 {
			c.metrics.refreshes.WithLabelValues("error").Inc()
			c.logger.WarnContext(ctx, "token refresh failed",
				slog.String("error", err.Error()),
			)
			return "", err
		}
		c.expire(ctx, "rejected", err)
		return "", apperrors.Unauthorized("session expired, please log in again")
	}

	pair, err := compat.Tokens(body)
	if err != nil {
		c.expire(ctx, "malformed", err)
		return "", apperrors.Unauthorized("session expired, please log in again")
	}
	if err := c.tokens.SetPair(ctx, pair.Access, pair.Refresh); err != nil {
		c.metrics.refreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("store refreshed tokens: %w", err)
	}

	c.metrics.refreshes.WithLabelValues("success").Inc()
	c.logger.InfoContext(ctx, "access token refreshed",
		slog.Bool("rotated_refresh", pair.Refresh != ""),
	)
	return pair.Access, nil
}

func (c *Client) expire(ctx context.Context, outcome string, cause error) {
	c.metrics.refreshes.WithLabelValues(outcome).Inc()
	c.logger.WarnContext(ctx, "session expired",
		slog.String("reason", outcome),
		slog.String("error", cause.Error()),
	)
	if c.expired != nil {
		c.expired.Publish(event.SessionExpired{Cause: cause})
	}
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, r Request, payload []byte, access string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
		if r.Anonymous {
			timeout = c.cfg.AuthTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)

	ctx, span := c.tracer.Start(ctx, r.Method+" "+r.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.Path),
		),
	)
	defer span.End()

	target := c.cfg.BaseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var bodyReader io.Reader = http.NoBody
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, bodyReader)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("build request %s %s: %w", r.Method, r.Path, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.observe(r.Method, 0, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.WarnContext(ctx, "api request failed",
			slog.String("method", r.Method),
			slog.String("path", r.Path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.observe(r.Method, resp.StatusCode, start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := httpclient.ParseResponseError(resp)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		c.logger.DebugContext(ctx, "api request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.Path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, apperrors.Network(fmt.Errorf("read %s %s response: %w", r.Method, r.Path, err))
	}

	c.logger.DebugContext(ctx, "api request completed",
		slog.String("method", r.Method),
		slog.String("path", r.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return body, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	c.metrics.requests.WithLabelValues(method, statusClass(status)).Inc()
	c.metrics.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encode request body: %w", err))
	}
	return data, nil
}
