package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

type otpLogin struct {
	Phone string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
	OTP   string `json:"otp" validate:"required,numeric,len=4"`
}

type checkout struct {
	Address string   `json:"address" validate:"required"`
	Items   []string `json:"items" validate:"min=1"`
	Qty     int      `json:"qty" validate:"min=1,max=10"`
	Country string   `json:"country" validate:"oneof=IN US"`
	Email   string   `json:"email,omitempty" validate:"omitempty,email"`
	Note    string   `validate:"required"`
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Passes(t *testing.T) {
	assert.NoError(t, Validate(otpLogin{Phone: "9876543210", OTP: "1234"}))
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		field string
		want  string
	}{
		{"digits", otpLogin{Phone: "98765x3210", OTP: "1234"}, "phone_number", "must contain digits only"},
		{"short phone", otpLogin{Phone: "123", OTP: "1234"}, "phone_number", "must be at least 10 characters"},
		{"long phone", otpLogin{Phone: "1234567890123456", OTP: "1234"}, "phone_number", "must be at most 15 characters"},
		{"otp length", otpLogin{Phone: "9876543210", OTP: "12"}, "otp", "must be exactly 4 characters"},
		{"empty items", checkout{Address: "a", Qty: 1, Country: "IN", Note: "n"}, "items", "must be at least 1 items"},
		{"qty bound", checkout{Address: "a", Items: []string{"x"}, Qty: 11, Country: "IN", Note: "n"}, "qty", "must be at most 10"},
		{"oneof", checkout{Address: "a", Items: []string{"x"}, Qty: 1, Country: "FR", Note: "n"}, "country", "must be one of: IN US"},
		{"email", checkout{Address: "a", Items: []string{"x"}, Qty: 1, Country: "IN", Email: "nope", Note: "n"}, "email", "must be a valid email address"},
		{"go name fallback", checkout{Address: "a", Items: []string{"x"}, Qty: 1, Country: "IN"}, "Note", "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldsOf(t, Validate(tt.in))
			assert.Equal(t, []string{tt.want}, fields[tt.field])
		})
	}
}

func TestValidationError_String(t *testing.T) {
	err := Validate(otpLogin{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'phone_number' is required")
	assert.Contains(t, err.Error(), "field 'otp' is required")
}

func TestCheck(t *testing.T) {
	err := Check(otpLogin{Phone: "abc", OTP: "1234"})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.NotEmpty(t, appErr.FieldMessage("phone_number"))
	assert.Empty(t, appErr.FieldMessage("otp"))

	assert.NoError(t, Check(otpLogin{Phone: "9876543210", OTP: "1234"}))
	assert.ErrorIs(t, Check("not a struct"), apperrors.ErrInvalidInput)
}

func TestDecodeAndValidate(t *testing.T) {
	post := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/auth/verify-otp", strings.NewReader(body))
	}

	var ok otpLogin
	require.NoError(t, DecodeAndValidate(post(`{"phone_number":"9876543210","otp":"1234"}`), &ok))
	assert.Equal(t, "1234", ok.OTP)

	var bad otpLogin
	err := DecodeAndValidate(post("{oops"), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")

	var empty otpLogin
	assert.Contains(t, fieldsOf(t, DecodeAndValidate(post(`{"otp":"1234"}`), &empty)), "phone_number")
}
