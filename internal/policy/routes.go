package policy

import (
	"path"
	"strings"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
)

var (
	platformRoles = []domain.Role{domain.RoleSuperAdmin}
	appRoles      = []domain.Role{domain.RoleAgent, domain.RoleBusinessOwner}
)

// Route is a client screen and the roles that may view it.
type Route struct {
	Path    string        `json:"path"`
	Allowed []domain.Role `json:"allowedRoles,omitempty"`
}

// Routes is the client route table.
type Routes struct {
	policy  *Policy
	known   map[string][]domain.Role
	ordered []Route
	index   map[string]string
	legacy  map[string]string
}

// NewRoutes builds the route table for the paths of pol.
func NewRoutes(pol *Policy) *Routes {
	p := pol.Paths()
	r := &Routes{
		policy: pol,
		known:  make(map[string][]domain.Role),
		index: map[string]string{
			"/platform": p.PlatformOverview,
			"/app":      p.AppDashboard,
		},
		legacy: map[string]string{
			"/agent": "/app/bolkar",
		},
	}

	r.add(p.Login, nil)
	r.add(p.Onboarding, nil)
	r.add(p.Root, nil)
	for _, s := range []string{"overview", "tenants", "users", "subscriptions", "logs"} {
		r.add("/platform/"+s, platformRoles)
	}
	for _, s := range []string{"dashboard", "leads", "crm", "bolkar", "growth", "team", "settings"} {
		r.add("/app/"+s, appRoles)
	}
	// configured homes must always be reachable by their role
	r.add(p.PlatformOverview, platformRoles)
	r.add(p.AppDashboard, appRoles)
	r.add(p.AgentHome, []domain.Role{domain.RoleAgent})
	return r
}

func (r *Routes) add(p string, allowed []domain.Role) {
	if _, ok := r.known[p]; ok {
		return
	}
	r.known[p] = allowed
	r.ordered = append(r.ordered, Route{Path: p, Allowed: allowed})
}

// All returns the route table in declaration order.
func (r *Routes) All() []Route {
	out := make([]Route, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Canonical maps a requested path to the screen that serves it: index paths
// go to their first child, legacy trees are folded into the app tree and
// unknown paths go to the root.
func (r *Routes) Canonical(raw string) string {
	p := cleanPath(raw)
	if _, ok := r.known[p]; ok {
		return p
	}
	if to, ok := r.index[p]; ok {
		return to
	}
	for prefix, to := range r.legacy {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return to
		}
	}
	return r.policy.Paths().Root
}

// AllowedRoles returns the role restriction for a canonical path, or nil.
func (r *Routes) AllowedRoles(canonical string) []domain.Role {
	return r.known[canonical]
}

// Decision is the guard outcome for a raw client path.
type Decision struct {
	State     State  `json:"state"`
	Path      string `json:"path"`
	Canonical string `json:"canonical"`
	Action    Action `json:"action"`
}

// Evaluate canonicalizes raw and decides on it. A path that only needed
// canonicalizing is reported as a redirect to its canonical form.
func (r *Routes) Evaluate(state State, raw string, role domain.Role) Decision {
	requested := cleanPath(raw)
	canonical := r.Canonical(raw)
	act := r.policy.Decide(state, canonical, r.AllowedRoles(canonical), role)

	if act.Kind == Stay && state != StateLoading && canonical != requested {
		act = redirect(canonical)
	}
	return Decision{State: state, Path: requested, Canonical: canonical, Action: act}
}

func cleanPath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}
