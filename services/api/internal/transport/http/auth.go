package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller as asserted by the identity provider.
// The engine trusts the verified token and does not re-validate credentials.
type Identity struct {
	Subject string
	Admin   bool
}

type identityKey struct{}

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityFromContext returns the caller identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticate verifies the bearer token and stores the caller identity on
// the request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			claims := &identityClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !parsed.Valid || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			identity := Identity{
				Subject: claims.Subject,
				Admin:   claims.Role == "admin",
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, identity)))
		})
	}
}

// RequireAdmin gates admin-only routes; it must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.Admin {
			writeError(w, http.StatusForbidden, codeForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
