package auth

import (
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/rbac"
)

// AttachUser loads the token subject from the store and puts the user in the
// context. The stored role overrides the token claim.
func AttachUser(users UserLookup, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			if sub == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u, err := users.GetUser(ctx, sub)
			switch {
			case errors.Is(err, academy.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			case err != nil:
				log.Error("attach user failed", "user", sub, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			case !u.IsActive:
				writeError(w, http.StatusForbidden, "account disabled")
				return
			}
			ctx = rbac.WithRole(WithUser(ctx, u), u.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
