package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitGeneral      = 1
	ExitUsageError   = 2
	ExitAuthRequired = 3
	ExitNetwork      = 4
	ExitConfigError  = 5
)

// CLIError is an error with user-facing context.
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string {
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

var errLoginRequired = &CLIError{
	Summary:    "you are not logged in",
	Suggestion: "run `storefront otp send --phone <number>` then `storefront login`",
	ExitCode:   ExitAuthRequired,
	Err:        apperrors.ErrUnauthorized,
}

// toCLIError classifies err for display.
func toCLIError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return &CLIError{
			Summary:    "your session has ended",
			Detail:     apperrors.UserMessage(err),
			Suggestion: "log in again with `storefront login`",
			ExitCode:   ExitAuthRequired,
			Err:        err,
		}
	case errors.Is(err, apperrors.ErrNetwork):
		return &CLIError{
			Summary:    "could not reach the store",
			Detail:     err.Error(),
			Suggestion: "check STOREFRONT_API_URL and your connection, then retry",
			ExitCode:   ExitNetwork,
			Err:        err,
		}
	case errors.Is(err, apperrors.ErrInvalidInput):
		return &CLIError{
			Summary:  apperrors.UserMessage(err),
			ExitCode: ExitUsageError,
			Err:      err,
		}
	case errors.Is(err, apperrors.ErrRateLimited), errors.Is(err, apperrors.ErrNotFound):
		return &CLIError{Summary: apperrors.UserMessage(err), ExitCode: ExitGeneral, Err: err}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		e := &CLIError{Summary: apperrors.UserMessage(err), ExitCode: ExitGeneral, Err: err}
		if apperrors.Retryable(err) {
			e.Suggestion = "this looks temporary, try again shortly"
		}
		return e
	}
	return &CLIError{Summary: err.Error(), ExitCode: ExitGeneral, Err: err}
}

// FormatError prints e to the error stream.
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	}
	if e.Detail != "" && e.Detail != e.Summary {
		fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		if p.useColors {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		} else {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	}
}
