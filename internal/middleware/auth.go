package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/httputil"
	"github.com/codebro/backend/internal/logger"
)

// Provisioner creates the local user row for a verified identity.
type Provisioner interface {
	EnsureUser(ctx context.Context, id auth.Identity) error
}

type Auth struct {
	secret      []byte
	provisioner Provisioner
	log         *logger.Logger
}

func NewAuth(secret []byte, provisioner Provisioner, log *logger.Logger) *Auth {
	return &Auth{secret: secret, provisioner: provisioner, log: log}
}

// Authenticate verifies the bearer token, provisions the caller and places
// the identity in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteError(w, r, a.log, apperr.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			httputil.WriteError(w, r, a.log, apperr.Unauthorized("Invalid authorization format"))
			return
		}

		id, err := auth.ParseToken(a.secret, strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.WriteError(w, r, a.log, apperr.New(apperr.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		if a.provisioner != nil {
			if err := a.provisioner.EnsureUser(r.Context(), id); err != nil {
				httputil.WriteError(w, r, a.log, apperr.Upstream("Failed to load user", err))
				return
			}
		}

		ctx := auth.WithIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose identity lacks role. It must run after
// Authenticate.
func RequireRole(role string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, log, apperr.Unauthorized("Unauthorized"))
				return
			}
			if !auth.HasRole(id, role) {
				httputil.WriteError(w, r, log, apperr.Forbidden("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
