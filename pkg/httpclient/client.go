package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

// Config holds HTTP client configuration
type Config struct {
	// Timeout bounds a whole request including reading the body. Call sites
	// usually set a tighter deadline through the request context.
	Timeout         time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

// DefaultConfig returns sensible defaults for HTTP client
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxConnsPerHost: 16,
		UserAgent:       "anigas-storefront/1.0",
	}
}

// Client wraps http.Client with pooling defaults and error classification.
// It never retries: a failed request is reported once and the caller decides.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with connection pooling
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// NewWithHTTPClient wraps an existing http.Client, e.g. one built by httptest.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	return &Client{httpClient: hc, config: cfg}
}

// Do executes the request. Transport failures (timeouts, refused
// connections, canceled contexts) come back as apperrors.ErrNetwork.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return nil, apperrors.Network(err)
		}
		return nil, fmt.Errorf("http %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// isNetworkError reports whether err means no response was received.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
