// Package recaptcha supplies bot-verification tokens for the login flow.
// Tokens are single use: a provider never hands out the same token twice.
package recaptcha

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNoToken is returned when the challenge has not been solved yet, or its
// token was already consumed.
var ErrNoToken = errors.New("recaptcha: no verification token available")

// Provider hands out verification tokens.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// OneShot holds a token obtained from an external challenge. Token consumes
// it; a second call fails until a new token is set.
type OneShot struct {
	mu    sync.Mutex
	token string
}

var _ Provider = (*OneShot)(nil)

// NewOneShot creates a holder, optionally preloaded with token.
func NewOneShot(token string) *OneShot {
	return &OneShot{token: token}
}

// Set stores a freshly solved token, replacing any unused one.
func (o *OneShot) Set(token string) {
	o.mu.Lock()
	o.token = token
	o.mu.Unlock()
}

// Token returns the held token and forgets it.
func (o *OneShot) Token(_ context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.token == "" {
		return "", ErrNoToken
	}
	tok := o.token
	o.token = ""
	return tok, nil
}

// Dev issues a random token on every call. It only satisfies backends that
// skip verification, like the mock backend.
type Dev struct{}

var _ Provider = Dev{}

func (Dev) Token(context.Context) (string, error) {
	return "dev-" + uuid.NewString(), nil
}
