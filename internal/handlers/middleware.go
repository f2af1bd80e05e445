package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/jredh-dev/rooted/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsContextKey stores verified session claims in request context.
const ClaimsContextKey contextKey = "claims"

// OptionalAuth attaches the claims of a valid bearer token to the request
// context. Requests without a token, or with an invalid one, pass through
// unchanged; handlers that need identity check ClaimsFromContext.
func OptionalAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || svc == nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := svc.ValidateToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts verified session claims from request context.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}
