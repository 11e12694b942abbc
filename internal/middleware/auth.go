package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nasidaunjeruk/pos/internal/auth"
	"github.com/sirupsen/logrus"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate accepts "Authorization: Bearer <access token>" and stores the
// session claims on the request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r.Header.Get("Authorization"))
			if msg != "" {
				deny(w, http.StatusUnauthorized, msg)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				logrus.WithField("path", r.URL.Path).Debug("rejected token: " + err.Error())
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken returns the token, or a message describing why the header is
// unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization format"
	}
	return strings.TrimSpace(token), ""
}

// RequireRole lets the request through when the session role is one of
// roles. Must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			switch {
			case claims == nil:
				deny(w, http.StatusUnauthorized, "not authenticated")
			case !allowed[claims.Role]:
				logrus.WithFields(logrus.Fields{
					"terminal": claims.Terminal,
					"role":     claims.Role,
					"path":     r.URL.Path,
				}).Warn("insufficient permissions")
				deny(w, http.StatusForbidden, "insufficient permissions")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WithClaims stores claims on ctx. Used by Authenticate and by handler tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
