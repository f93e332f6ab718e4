package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

type addressForm struct {
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())
}

func TestWriteDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDetail(rec, http.StatusForbidden, "Nope.")
	assert.JSONEq(t, `{"detail":"Nope."}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "field errors",
			err:    apperrors.Validation("bad", map[string][]string{"otp": {"Invalid OTP."}}),
			status: http.StatusBadRequest,
			body:   `{"otp":["Invalid OTP."]}`,
		},
		{
			name:   "validator failure",
			err:    validator.Validate(addressForm{Pincode: "12"}),
			status: http.StatusBadRequest,
			body:   `{"pincode":["must be exactly 6 characters"]}`,
		},
		{
			name:   "app error message",
			err:    apperrors.NotFound("address", "9"),
			status: http.StatusNotFound,
			body:   `{"detail":"address with id 9 not found"}`,
		},
		{
			name:   "wrapped app error",
			err:    fmt.Errorf("save: %w", apperrors.Conflict("exists")),
			status: http.StatusConflict,
			body:   `{"detail":"exists"}`,
		},
		{
			name:   "rate limited",
			err:    apperrors.RateLimited("slow down"),
			status: http.StatusTooManyRequests,
			body:   `{"detail":"slow down"}`,
		},
		{
			name:   "bare sentinel",
			err:    fmt.Errorf("lookup: %w", apperrors.ErrNotFound),
			status: http.StatusNotFound,
			body:   `{"detail":"Not found."}`,
		},
		{
			name:   "unknown error hidden",
			err:    errors.New("bolt: database not open"),
			status: http.StatusInternalServerError,
			body:   `{"detail":"A server error occurred."}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/ecom/address/9/", nil), tt.err, logger.Discard())
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteError_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("mock", "info", "json", &buf)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", nil)
	WriteError(rec, req, errors.New("sign token: key missing"), l)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "/auth/verify-otp", entry["path"])
	assert.Contains(t, entry["error"], "key missing")
}

func TestWriteValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(addressForm{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"pincode":["is required"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: EOF"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "decode request body")
}
