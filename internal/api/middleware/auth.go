package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wireline-chat/wireline/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// AuthMiddleware verifies bearer credentials on authenticated endpoints.
type AuthMiddleware struct {
	signer *auth.Signer
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(signer *auth.Signer) *AuthMiddleware {
	return &AuthMiddleware{signer: signer}
}

// RequireAuth verifies the Authorization header and stores the resolved
// identity on the request context. Missing, malformed, expired or badly
// signed credentials all yield 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			jsonError(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		identity, err := m.signer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentityFromContext retrieves the authenticated identity from the
// request context, or nil when the request was not authenticated.
func GetIdentityFromContext(ctx context.Context) *auth.Identity {
	identity, ok := ctx.Value(identityContextKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
