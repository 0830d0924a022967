package controlapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudvault/vaultd/internal/controlapi/auth"
)

type contextKey string

const claimsKey contextKey = "controlapi.claims"

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// jwtAuth validates the bearer token and stores its Claims in the request
// context. Every admin route runs behind this.
func jwtAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := extractBearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authorization header required")
				return
			}
			claims, err := svc.Validate(tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if !claims.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin role required")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
