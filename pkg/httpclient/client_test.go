package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

func get(t *testing.T, d interface {
	Do(context.Context, *http.Request) (*http.Response, error)
}, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := d.Do(context.Background(), req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestClient_SetsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anigas-storefront/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := get(t, New(DefaultConfig()), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClient_KeepsCallerUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "doctor", r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "doctor")
	resp, err := New(DefaultConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()
}

func TestClient_ServerErrorReturnedOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := get(t, New(DefaultConfig()), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DeadlineIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := get(t, New(Config{Timeout: 50 * time.Millisecond, MaxConnsPerHost: 2}), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
}

func TestClient_RefusedIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := get(t, New(DefaultConfig()), url)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.True(t, apperrors.Retryable(err))
}

func TestNewWithHTTPClient_UsesGivenClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	resp, err := get(t, NewWithHTTPClient(server.Client(), Config{}), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
