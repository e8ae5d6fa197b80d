package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/rbac"
)

func seedUsers(t *testing.T) academy.MemoryStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s := academy.NewInMemoryStore()
	ctx := context.Background()
	for _, u := range []academy.User{
		{ID: "u1", Username: "ann", Role: academy.RoleLearner, IsActive: true, PasswordHash: string(hash)},
		{ID: "u2", Username: "old", Role: academy.RoleManager, IsActive: false, PasswordHash: string(hash)},
	} {
		if err := s.PutUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, exp, err := a.IssueJWT("u1", academy.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "u1" || c.Role != academy.RoleManager {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token accepted with wrong key")
	}
	expired := NewAuthService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.IssueJWT("u1", academy.RoleLearner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Parse(old); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestLoginHandler(t *testing.T) {
	store := seedUsers(t)
	a := NewAuthService("secret", time.Hour)
	h := LoginHandler(a, store, logger.Nop())

	cases := map[string]struct {
		body string
		want int
	}{
		"ok":       {`{"username":"ann","password":"pw"}`, http.StatusOK},
		"bad pw":   {`{"username":"ann","password":"nope"}`, http.StatusUnauthorized},
		"unknown":  {`{"username":"zed","password":"pw"}`, http.StatusUnauthorized},
		"inactive": {`{"username":"old","password":"pw"}`, http.StatusUnauthorized},
		"bad json": {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body)))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want != http.StatusOK {
				return
			}
			var out struct {
				AccessToken string `json:"access_token"`
				Role        string `json:"role"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			c, err := a.Parse(out.AccessToken)
			if err != nil || c.Sub != "u1" || out.Role != academy.RoleLearner {
				t.Fatalf("token %+v, %v", c, err)
			}
		})
	}
}

func TestJWTMiddlewareAndAttachUser(t *testing.T) {
	store := seedUsers(t)
	a := NewAuthService("secret", time.Hour)

	var seen academy.User
	var role string
	h := JWTMiddleware(a)(AttachUser(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do(""); got != http.StatusUnauthorized {
		t.Fatalf("no token: %d", got)
	}
	if got := do("garbage"); got != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", got)
	}

	// the claim says admin but the stored role wins
	tok, _, _ := a.IssueJWT("u1", academy.RoleAdmin)
	if got := do(tok); got != http.StatusNoContent {
		t.Fatalf("valid token: %d", got)
	}
	if seen.Username != "ann" || role != academy.RoleLearner {
		t.Fatalf("user %+v role %q", seen, role)
	}

	tok, _, _ = a.IssueJWT("u2", academy.RoleManager)
	if got := do(tok); got != http.StatusForbidden {
		t.Fatalf("inactive user: %d", got)
	}
	tok, _, _ = a.IssueJWT("ghost", academy.RoleLearner)
	if got := do(tok); got != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", got)
	}
}
