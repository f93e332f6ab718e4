// Package validator checks request payloads with go-playground/validator and
// reports failures keyed by JSON field name, the same shape the storefront
// backend uses for its own 400 responses.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}()

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "", "-":
		return f.Name
	}
	return name
}

// ValidationError lists the failed constraints of one payload.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("field '%s' %s", fe.Field(), describe(fe)))
	}
	return strings.Join(parts, "; ")
}

// Fields groups the messages by field name.
func (e *ValidationError) Fields() map[string][]string {
	fields := make(map[string][]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
	}
	return fields
}

// AppError converts the failure into a field-keyed validation AppError.
func (e *ValidationError) AppError() *apperrors.AppError {
	return apperrors.Validation("please correct the highlighted fields", e.Fields())
}

// Validate runs the struct's validate tags.
func Validate(s any) error {
	err := validate.Struct(s)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

// Check is Validate for client-side callers: any failure comes back as an
// *apperrors.AppError wrapping ErrInvalidInput.
func Check(s any) error {
	err := Validate(s)
	if err == nil {
		return nil
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.AppError()
	}
	return apperrors.InvalidInput(err.Error())
}

// DecodeAndValidate decodes a JSON request body into dst and validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return Validate(dst)
}

var fixedMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"numeric":  "must contain digits only",
	"uuid":     "must be a valid UUID",
	"url":      "must be a valid URL",
}

var boundMessages = map[string]string{
	"gt":  "must be greater than %s",
	"gte": "must be greater than or equal to %s",
	"lt":  "must be less than %s",
	"lte": "must be less than or equal to %s",
}

func describe(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	if format, ok := boundMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Param())
	}

	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s %s", fe.Param(), unit(fe.Kind()))
	case "min":
		if isNumber(fe.Kind()) {
			return "must be at least " + fe.Param()
		}
		return fmt.Sprintf("must be at least %s %s", fe.Param(), unit(fe.Kind()))
	case "max":
		if isNumber(fe.Kind()) {
			return "must be at most " + fe.Param()
		}
		return fmt.Sprintf("must be at most %s %s", fe.Param(), unit(fe.Kind()))
	}
	return fmt.Sprintf("failed on '%s' validation", fe.Tag())
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.Slice, reflect.Array, reflect.Map:
		return "items"
	}
	return "characters"
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
