// Package httputil writes JSON responses in the backend's error dialect:
// {"detail": "..."} for request-level failures and {"field": ["..."]} for
// validation failures.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

const serverErrorDetail = "A server error occurred."

type Detail struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// since the status line is already out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDetail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Detail{Detail: message})
}

// WriteFieldErrors writes a 400 such as {"phone_number": ["Enter a valid phone number."]}.
func WriteFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	WriteJSON(w, http.StatusBadRequest, fields)
}

// WriteError maps err onto a response. Only failures that end up as a 500
// are logged, through the request logger when one is in context.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	if fields := fieldErrors(err); len(fields) > 0 {
		WriteFieldErrors(w, fields)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteDetail(w, status, serverErrorDetail)
		return
	}
	WriteDetail(w, status, detailFor(err))
}

// WriteValidationError answers a failed validator.DecodeAndValidate: field
// errors when validation ran, otherwise a 400 naming the decode failure.
func WriteValidationError(w http.ResponseWriter, err error) {
	if fields := fieldErrors(err); len(fields) > 0 {
		WriteFieldErrors(w, fields)
		return
	}
	WriteDetail(w, http.StatusBadRequest, err.Error())
}

func fieldErrors(err error) map[string][]string {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Fields()
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

func detailFor(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return "Not found."
	}
	return err.Error()
}
