package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/auth"
)

type claimsKey struct{}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// Auth requires a valid bearer access token.
func Auth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
				return
			}
			claims, err := tm.Parse(strings.TrimSpace(ah[len("Bearer "):]))
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// RequireRole allows only tokens carrying one of roles. It must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing claims", nil)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "role not allowed", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WebhookToken checks the shared secret the payment gateway sends in
// X-Webhook-Token. An empty token disables the check (dev only).
func WebhookToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Webhook-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
