package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KavinT06/anigas-attire-sub000/pkg/httputil"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
	"github.com/KavinT06/anigas-attire-sub000/pkg/middleware"
	"github.com/KavinT06/anigas-attire-sub000/pkg/validator"
)

type otpRequest struct {
	Phone     string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
	Recaptcha string `json:"recaptcha_token" validate:"required"`
}

type loginRequest struct {
	Phone     string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
	OTP       string `json:"otp" validate:"required"`
	Recaptcha string `json:"recaptcha_token" validate:"required"`
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.consumeCaptchaLocked(w, req.Recaptcha) {
		return
	}
	s.otpSent[req.Phone] = true

	logger.FromContext(r.Context()).InfoContext(r.Context(), "otp issued", slog.String("phone", req.Phone))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"detail": "OTP sent successfully."})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.consumeCaptchaLocked(w, req.Recaptcha) {
		return
	}
	if req.OTP != s.cfg.OTP {
		httputil.WriteFieldErrors(w, map[string][]string{"otp": {"Invalid or expired OTP."}})
		return
	}
	delete(s.otpSent, req.Phone)

	if _, ok := s.accounts[req.Phone]; !ok {
		s.accounts[req.Phone] = newAccount(req.Phone)
	}

	access, err := s.issueAccessLocked(req.Phone)
	if err != nil {
		httputil.WriteError(w, r, err, s.logger)
		return
	}
	resp := map[string]any{
		"access": access,
		"user":   s.accounts[req.Phone].user,
	}
	if !s.cfg.OmitRefresh {
		refresh := uuid.NewString()
		s.refresh[refresh] = req.Phone
		resp["refresh"] = refresh
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		httputil.WriteFieldErrors(w, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	phone, ok := s.refresh[req.Refresh]
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Detail{
			Detail: "Token is invalid or expired",
			Code:   "token_not_valid",
		})
		return
	}
	access, err := s.issueAccessLocked(phone)
	if err != nil {
		httputil.WriteError(w, r, err, s.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}

// consumeCaptchaLocked enforces single use of verification tokens and writes
// the rejection itself. s.mu must be held.
func (s *Server) consumeCaptchaLocked(w http.ResponseWriter, token string) bool {
	if s.usedCaptchas[token] {
		httputil.WriteFieldErrors(w, map[string][]string{
			"recaptcha_token": {"reCAPTCHA token has already been used."},
		})
		return false
	}
	s.usedCaptchas[token] = true
	return true
}

func (s *Server) issueAccessLocked(phone string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"token_type":   "access",
		"user_id":      phone,
		"phone_number": phone,
		"jti":          uuid.NewString(),
		"iat":          now.Unix(),
		"exp":          now.Add(s.cfg.AccessTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	s.access[signed] = phone
	return signed, nil
}

func (s *Server) validateAccess(raw string) (*middleware.Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.SigningKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	s.mu.Lock()
	phone, ok := s.access[raw]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("access token revoked")
	}
	return &middleware.Claims{UserID: phone, Phone: phone}, nil
}

// IssueTokens signs phone in without the OTP exchange and returns a fresh
// credential pair.
func (s *Server) IssueTokens(phone string) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[phone]; !ok {
		s.accounts[phone] = newAccount(phone)
	}
	access, err = s.issueAccessLocked(phone)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	s.refresh[refresh] = phone
	return access, refresh, nil
}
