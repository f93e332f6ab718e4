package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// nonFieldKeys are payload keys that never name a form field.
var nonFieldKeys = map[string]bool{
	"detail": true, "message": true, "error": true, "code": true,
	"status": true, "status_code": true, "success": true,
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Network(fmt.Errorf("read error body (status %d): %w", resp.StatusCode, err))
	}
	return NormalizeError(resp.StatusCode, body)
}

// NormalizeError maps an HTTP status and raw payload to an AppError carrying
// status, message, per-field messages and the raw payload.
func NormalizeError(status int, body []byte) *apperrors.AppError {
	msg, fields := extractErrorPayload(body)
	if msg == "" {
		msg = strings.ToLower(http.StatusText(status))
	}

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if len(fields) > 0 {
			appErr = apperrors.Validation(msg, fields)
		} else {
			appErr = apperrors.InvalidInput(msg)
		}
	case status == http.StatusUnauthorized:
		appErr = apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		appErr = apperrors.Forbidden(msg)
	case status == http.StatusNotFound:
		appErr = &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Err: apperrors.ErrNotFound}
	case status == http.StatusConflict:
		appErr = apperrors.Conflict(msg)
	case status == http.StatusTooManyRequests:
		appErr = apperrors.RateLimited(msg)
	case status >= 500:
		appErr = &apperrors.AppError{Code: "SERVER_ERROR", Message: msg, Err: apperrors.ErrInternal}
	default:
		appErr = &apperrors.AppError{Code: fmt.Sprintf("HTTP_%d", status), Message: msg}
	}

	appErr.Status = status
	if len(fields) > 0 {
		appErr.Fields = fields
	}
	if json.Valid(body) {
		appErr.Raw = append(json.RawMessage(nil), body...)
	}
	return appErr
}

// extractErrorPayload tries, in order: a nested {"error":{...}} envelope, a
// flat "detail", "message" or "error" string, then field-keyed messages
// (string or list of strings). When only fields are present the first field
// message (by key order) becomes the summary.
func extractErrorPayload(body []byte) (string, map[string][]string) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			return list[0], nil
		}
		return strings.TrimSpace(string(body[:min(len(body), 200)])), nil
	}

	var msg string
	if raw, ok := top["error"]; ok {
		var nested struct {
			Message string              `json:"message"`
			Fields  map[string][]string `json:"fields"`
		}
		if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
			return nested.Message, nested.Fields
		}
	}
	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := top[key]; ok && msg == "" {
			msg = asString(raw)
		}
	}

	fields := make(map[string][]string)
	for key, raw := range top {
		if nonFieldKeys[key] {
			continue
		}
		if msgs := asStrings(raw); len(msgs) > 0 {
			fields[key] = msgs
		}
	}
	if len(fields) == 0 {
		return msg, nil
	}
	if msg == "" {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg = fields[keys[0]][0]
	}
	return msg, fields
}

func asString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if list := asStrings(raw); len(list) > 0 {
		return list[0]
	}
	return ""
}

func asStrings(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return []string{s}
	}
	return nil
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
