package rbac

import (
	"context"
	"strings"
)

// Policy is a compiled role → permission table. A grant ending in "*" matches
// every permission with that prefix; "*" alone matches everything.
type Policy struct {
	roles map[string]grants
}

type grants struct {
	all      bool
	exact    map[string]struct{}
	prefixes []string
}

// Default is built from RolePermissions and backs Require / RequireAny.
var Default = NewPolicy(RolePermissions)

func NewPolicy(table map[string][]string) *Policy {
	p := &Policy{roles: make(map[string]grants, len(table))}
	for role, perms := range table {
		g := grants{exact: map[string]struct{}{}}
		for _, perm := range perms {
			switch {
			case perm == "*":
				g.all = true
			case strings.HasSuffix(perm, "*"):
				g.prefixes = append(g.prefixes, strings.TrimSuffix(perm, "*"))
			default:
				g.exact[perm] = struct{}{}
			}
		}
		p.roles[role] = g
	}
	return p
}

func (p *Policy) Allows(role, perm string) bool {
	g, ok := p.roles[role]
	if !ok {
		return false
	}
	if g.all {
		return true
	}
	if _, ok := g.exact[perm]; ok {
		return true
	}
	for _, pre := range g.prefixes {
		if strings.HasPrefix(perm, pre) {
			return true
		}
	}
	return false
}

func (p *Policy) AllowsAny(role string, perms ...string) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}

type roleKey struct{}

// WithRole stores the effective role of the request.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
