package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error { return nil }

func down(msg string) Checker {
	return func(context.Context) error { return errors.New(msg) }
}

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *Registry)
		status Status
	}{
		{"no checks", func(*Registry) {}, StatusUp},
		{"all up", func(r *Registry) {
			r.Register("storage", up)
			r.RegisterNonCritical("backend", up)
		}, StatusUp},
		{"non-critical down", func(r *Registry) {
			r.Register("storage", up)
			r.RegisterNonCritical("backend", down("connection refused"))
		}, StatusDegraded},
		{"critical down", func(r *Registry) {
			r.Register("storage", down("locked"))
			r.RegisterNonCritical("backend", up)
		}, StatusDown},
		{"both down", func(r *Registry) {
			r.Register("storage", down("locked"))
			r.RegisterNonCritical("backend", down("refused"))
		}, StatusDown},
		{"overwrite", func(r *Registry) {
			r.Register("storage", down("locked"))
			r.Register("storage", up)
		}, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.setup(r)

			resp := r.Run(context.Background())

			assert.Equal(t, tt.status, resp.Status)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestRun_ReportsEachCheck(t *testing.T) {
	r := NewRegistry()
	r.Register("storage", up)
	r.RegisterNonCritical("backend", down("connection refused"))

	resp := r.Run(context.Background())

	assert.Equal(t, []string{"backend", "storage"}, resp.Names())
	assert.True(t, resp.Checks["storage"].Critical)
	assert.Equal(t, StatusDown, resp.Checks["backend"].Status)
	assert.Equal(t, "connection refused", resp.Checks["backend"].Error)
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()

	NewRegistry().LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadinessHandler(t *testing.T) {
	r := NewRegistry()
	r.Register("catalog", down("empty"))
	rec := httptest.NewRecorder()

	r.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, "empty", resp.Checks["catalog"].Error)
}
