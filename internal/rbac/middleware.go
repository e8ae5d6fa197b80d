package rbac

import (
	"encoding/json"
	"net/http"
)

// Require rejects requests whose role lacks perm under the Default policy.
func Require(perm string) func(http.Handler) http.Handler {
	return Default.Require(perm)
}

// RequireAny rejects requests whose role holds none of perms under the Default policy.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return Default.RequireAny(perms...)
}

func (p *Policy) Require(perm string) func(http.Handler) http.Handler {
	return p.guard(func(role string) bool { return p.Allows(role, perm) })
}

func (p *Policy) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return p.guard(func(role string) bool { return p.AllowsAny(role, perms...) })
}

func (p *Policy) guard(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role := RoleFromContext(r.Context()); role == "" || !allowed(role) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
