package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

// ErrCircuitOpen is wrapped in the ErrNetwork returned while the breaker
// sheds load.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerConfig tunes a breaker. The breaker trips once TripAfter
// requests have been seen in the current window and at least TripRatio of
// them failed.
type CircuitBreakerConfig struct {
	Name string

	// HalfOpenProbes requests are let through while half-open.
	HalfOpenProbes uint32
	// Window clears the closed-state counts. Zero keeps them forever.
	Window time.Duration
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration

	TripRatio float64
	TripAfter uint32

	// Registerer receives the breaker state gauge. Nil disables it.
	Registerer prometheus.Registerer
}

// DefaultCircuitBreakerConfig suits a single storefront backend.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:           name,
		HalfOpenProbes: 1,
		Window:         time.Minute,
		Cooldown:       30 * time.Second,
		TripRatio:      0.5,
		TripAfter:      5,
	}
}

// breakerLevel is the gauge value for each state.
var breakerLevel = map[gobreaker.State]float64{
	gobreaker.StateClosed:   0,
	gobreaker.StateHalfOpen: 1,
	gobreaker.StateOpen:     2,
}

// upstreamFailure carries a 5xx response through the breaker so it counts as
// a failure but still reaches the caller.
type upstreamFailure struct {
	resp *http.Response
}

func (e *upstreamFailure) Error() string {
	return fmt.Sprintf("upstream answered %d", e.resp.StatusCode)
}

// CircuitBreakerClient fails fast with ErrNetwork once the backend keeps
// answering 5xx or not at all.
type CircuitBreakerClient struct {
	next    *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	gauge   prometheus.Gauge
	logger  *slog.Logger
}

// NewCircuitBreakerClient wraps next with a breaker.
func NewCircuitBreakerClient(next *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	c := &CircuitBreakerClient{next: next, logger: logger}

	if cfg.Registerer != nil {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "storefront_circuit_breaker_state",
			Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open).",
			ConstLabels: prometheus.Labels{"name": cfg.Name},
		})
		if err := cfg.Registerer.Register(gauge); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if !errors.As(err, &dup) {
				logger.Warn("circuit breaker gauge not registered", slog.String("error", err.Error()))
			} else if existing, ok := dup.ExistingCollector.(prometheus.Gauge); ok {
				gauge = existing
			}
		}
		c.gauge = gauge
	}

	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.TripAfter {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.TripRatio
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up is not a backend failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			c.record(to)
		},
	})
	c.record(gobreaker.StateClosed)
	return c
}

func (c *CircuitBreakerClient) record(s gobreaker.State) {
	if c.gauge != nil {
		c.gauge.Set(breakerLevel[s])
	}
}

// Do sends req through the breaker. 5xx responses are returned as responses,
// not errors, so the caller can still read the backend's error body.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.next.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &upstreamFailure{resp: resp}
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}

	var upstream *upstreamFailure
	if errors.As(err, &upstream) {
		return upstream.resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.WarnContext(ctx, "circuit breaker rejected request",
			slog.String("breaker", c.breaker.Name()),
			slog.String("path", req.URL.Path),
		)
		return nil, apperrors.Network(err)
	}
	return nil, err
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
