package api

import (
	"context"
	"net/http"
	"strings"

	"collab-chat/contract"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom extracts the authenticated identity injected by RequireAuth.
func IdentityFrom(ctx context.Context) (contract.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(contract.Identity)
	return identity, ok
}

// RequireAuth validates the bearer token and injects the resolved identity
// into the request context.
func RequireAuth(resolver contract.IdentityResolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := resolver.ResolveIdentity(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}
