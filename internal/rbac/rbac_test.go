package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-academy/internal/academy"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewPolicy(RolePermissions)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{academy.RoleLearner, PermQuizSubmit, true},
		{academy.RoleLearner, PermFinalTestReview, false},
		{academy.RoleLearner, PermProgressViewAll, false},
		{academy.RoleManager, PermFinalTestReview, true},
		{academy.RoleManager, PermCourseAssign, true},
		{academy.RoleManager, PermCertificateList, true},
		{academy.RoleAdmin, "anything:at-all", true},
		{"ghost", PermCourseView, false},
	}
	for _, tc := range cases {
		if got := c.Allows(tc.role, tc.perm); got != tc.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.AllowsAny(academy.RoleLearner, PermFinalTestReview, PermCourseView) {
		t.Fatal("AllowsAny should match course:view")
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermFinalTestReview)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{
		"":                  http.StatusForbidden,
		academy.RoleLearner: http.StatusForbidden,
		academy.RoleManager: http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			req = req.WithContext(WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}

func TestPrefixGrant(t *testing.T) {
	p := NewPolicy(map[string][]string{"reviewer": {"final_test:*", PermCourseView}})
	if !p.Allows("reviewer", PermFinalTestReview) || !p.Allows("reviewer", PermFinalTestSubmit) {
		t.Fatal("prefix grant should cover final_test permissions")
	}
	if p.Allows("reviewer", PermQuizSubmit) {
		t.Fatal("quiz:submit not granted")
	}
}

func TestRequireAny(t *testing.T) {
	h := RequireAny(PermProgressViewAll, PermCourseView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(WithRole(context.Background(), academy.RoleLearner))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
}
