package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/KavinT06/anigas-attire-sub000/pkg/httputil"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
)

type claimsKey struct{}

// Claims are the identity fields carried by a bearer token.
type Claims struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone_number"`
}

// TokenValidator checks a raw bearer token.
type TokenValidator func(token string) (*Claims, error)

// Auth admits requests with a valid bearer token. Rejections are 401s in
// the {"detail", "code"} shape the store backend uses, so clients can tell a
// missing credential from an expired one.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Authentication credentials were not provided.", "not_authenticated")
				return
			}
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				unauthorized(w, "Authorization header must contain two space-delimited values", "bad_authorization_header")
				return
			}
			claims, err := validate(raw)
			if err != nil {
				unauthorized(w, "Given token not valid for any token type", "token_not_valid")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Detail{Detail: detail, Code: code})
}
