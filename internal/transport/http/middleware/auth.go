package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/aeronite/auth-api/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Auth returns middleware that validates the access token and injects claims
// into the request context. The token is read from the Authorization header,
// falling back to the access_token cookie set at login.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := accessTokenFromRequest(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing access token")
				return
			}
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessTokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if c, err := r.Cookie("access_token"); err == nil {
		return c.Value
	}
	return ""
}

// ClaimsFromContext extracts verified token claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
