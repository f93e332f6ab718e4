// Package auth implements the phone/OTP login flow and logout.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/KavinT06/anigas-attire-sub000/internal/apiclient"
	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
	"github.com/KavinT06/anigas-attire-sub000/internal/event"
	"github.com/KavinT06/anigas-attire-sub000/internal/recaptcha"
	"github.com/KavinT06/anigas-attire-sub000/internal/session"
	"github.com/KavinT06/anigas-attire-sub000/internal/storage"
	"github.com/KavinT06/anigas-attire-sub000/internal/token"
	apperrors "github.com/KavinT06/anigas-attire-sub000/pkg/errors"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

const (
	sendOTPPath = "/auth/send-otp"
	loginPath   = "/auth/login"

	DefaultOTPInterval = 30 * time.Second
)

type sendOTPRequest struct {
	Phone     string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
	Recaptcha string `json:"recaptcha_token"`
}

type loginRequest struct {
	Phone     string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
	OTP       string `json:"otp" validate:"required,numeric,min=4,max=8"`
	Recaptcha string `json:"recaptcha_token"`
}

// Service runs the authentication flows.
type Service struct {
	api      *apiclient.Client
	tokens   *token.Store
	store    storage.Store
	sessions *session.Manager
	limiter  *rate.Limiter
	logger   *slog.Logger
	unsub    func()
}

// NewService creates the auth service and subscribes it to SessionExpired so
// an unrecoverable refresh failure logs the user out. otpInterval is the
// minimum spacing between OTP sends; zero uses DefaultOTPInterval.
func NewService(
	api *apiclient.Client,
	tokens *token.Store,
	store storage.Store,
	sessions *session.Manager,
	expired *event.Bus[event.SessionExpired],
	otpInterval time.Duration,
	logger *slog.Logger,
) *Service {
	if otpInterval <= 0 {
		otpInterval = DefaultOTPInterval
	}
	s := &Service{
		api:      api,
		tokens:   tokens,
		store:    store,
		sessions: sessions,
		limiter:  rate.NewLimiter(rate.Every(otpInterval), 1),
		logger:   logger,
	}
	s.unsub = expired.Subscribe(func(ev event.SessionExpired) {
		s.ForceLogout(context.Background(), ev.Cause)
	})
	return s
}

// Close detaches the service from SessionExpired.
func (s *Service) Close() {
	s.unsub()
}

// SendOTP asks the backend to text a one-time code to phone. captcha must
// supply a fresh verification token; it is consumed even if the call fails.
func (s *Service) SendOTP(ctx context.Context, phone string, captcha recaptcha.Provider) error {
	req := sendOTPRequest{Phone: phone}
	if err := validator.Check(req); err != nil {
		return err
	}

	reservation := s.limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return apperrors.RateLimited(fmt.Sprintf("please wait %s before requesting another code", delay.Round(time.Second)))
	}

	tok, err := captcha.Token(ctx)
	if err != nil {
		reservation.Cancel()
		return captchaError(err)
	}
	req.Recaptcha = tok

	if _, err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      sendOTPPath,
		Body:      req,
		Anonymous: true,
	}); err != nil {
		reservation.Cancel()
		s.logger.WarnContext(ctx, "send otp failed", slog.String("error", err.Error()))
		return err
	}

	s.logger.InfoContext(ctx, "otp sent", slog.String("phone", maskPhone(phone)))
	return nil
}

// Login exchanges phone and otp for a credential pair and starts the session.
func (s *Service) Login(ctx context.Context, phone, otp string, captcha recaptcha.Provider) (*domain.User, error) {
	req := loginRequest{Phone: phone, OTP: otp}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	tok, err := captcha.Token(ctx)
	if err != nil {
		return nil, captchaError(err)
	}
	req.Recaptcha = tok

	body, err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      loginPath,
		Body:      req,
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	pair, err := compat.Tokens(body)
	if err != nil {
		s.logger.ErrorContext(ctx, "login response without credentials", slog.String("error", err.Error()))
		return nil, apperrors.Internal(fmt.Errorf("login response: %w", err))
	}
	if err := s.tokens.SetPair(ctx, pair.Access, pair.Refresh); err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.store.Set(ctx, storage.KeyUserPhone, []byte(phone), 0); err != nil {
		s.logger.WarnContext(ctx, "failed to remember phone", slog.String("error", err.Error()))
	}

	user := userFromLogin(body)
	if user != nil && user.PhoneNumber == "" {
		user.PhoneNumber = phone
	}
	s.sessions.OnLoginSuccess(ctx, user)

	s.logger.InfoContext(ctx, "logged in",
		slog.String("phone", maskPhone(phone)),
		slog.Bool("refresh_issued", pair.Refresh != ""),
	)
	return s.sessions.Current().User, nil
}

// Logout drops the credentials and remembered phone and ends the session.
// It is safe to call when already logged out.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.store.Delete(ctx, storage.KeyUserPhone); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.sessions.OnLogout(ctx)
	return nil
}

// ForceLogout wipes every piece of persisted client state and ends the
// session. It runs when the refresh protocol cannot recover.
func (s *Service) ForceLogout(ctx context.Context, cause error) {
	attrs := []any{}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	s.logger.WarnContext(ctx, "forcing logout", attrs...)

	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear tokens", slog.String("error", err.Error()))
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear client state", slog.String("error", err.Error()))
	}
	s.sessions.OnLogout(ctx)
}

func userFromLogin(body []byte) *domain.User {
	var payload struct {
		User *domain.User `json:"user"`
		Data struct {
			User *domain.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if payload.User != nil {
		return payload.User
	}
	return payload.Data.User
}

func captchaError(err error) error {
	return apperrors.Validation("verification expired, please complete the challenge again",
		map[string][]string{"recaptcha_token": {err.Error()}})
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
