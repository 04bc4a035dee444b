// Package middleware provides the HTTP middleware chain of the API.
package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/response"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticator rejects requests without a valid bearer token and attaches
// the caller's Principal to the request context.
type Authenticator struct {
	tokens TokenParser
	log    logrus.FieldLogger
}

func NewAuthenticator(tokens TokenParser, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{tokens: tokens, log: log}
}

func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
		if err != nil {
			response.Fail(w, http.StatusUnauthorized, "Authentication required", err.Error())
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			a.log.WithFields(logrus.Fields{
				"path":       r.URL.Path,
				"request_id": RequestID(r.Context()),
			}).Debug("token rejected")
			response.Fail(w, http.StatusUnauthorized, "Authentication required", err.Error())
			return
		}

		ctx := auth.WithPrincipal(r.Context(), auth.FromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission allows the request when the caller holds any of permissions.
func RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}
			if !auth.HasAnyPermission(p.Role, permissions...) {
				response.Fail(w, http.StatusForbidden, "Insufficient permissions", map[string]any{"required": permissions})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
