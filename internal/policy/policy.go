// Package policy holds the pure authorization and navigation rules: which
// screen a session may view, where it is sent otherwise, and which
// navigation entries its permissions unlock. Nothing here performs I/O.
package policy

import (
	"slices"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
)

// State is the coarse session state the guard reasons about.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateLoading         State = "LOADING"
	StateNewUser         State = "NEW_USER"
	StateInvited         State = "INVITED"
	StateActive          State = "ACTIVE"
)

// StateFor maps session facts to a State. Loading wins over everything so a
// resolution in flight never triggers a redirect.
func StateFor(loading, signedIn bool, status domain.Status) State {
	switch {
	case loading:
		return StateLoading
	case !signedIn:
		return StateUnauthenticated
	case status == domain.StatusActive:
		return StateActive
	case status == domain.StatusInvited:
		return StateInvited
	default:
		return StateNewUser
	}
}

// ActionKind is STAY or REDIRECT.
type ActionKind string

const (
	Stay     ActionKind = "STAY"
	Redirect ActionKind = "REDIRECT"
)

// Action is the outcome of Decide.
type Action struct {
	Kind ActionKind `json:"kind"`
	To   string     `json:"to,omitempty"`
}

func stay() Action              { return Action{Kind: Stay} }
func redirect(to string) Action { return Action{Kind: Redirect, To: to} }

// Paths are the well-known destinations used by the policy.
type Paths struct {
	Login            string
	Onboarding       string
	Root             string
	PlatformOverview string
	AppDashboard     string
	AgentHome        string
}

// DefaultPaths returns the stock route layout.
func DefaultPaths() Paths {
	return Paths{
		Login:            "/login",
		Onboarding:       "/onboarding",
		Root:             "/",
		PlatformOverview: "/platform/overview",
		AppDashboard:     "/app/dashboard",
		AgentHome:        "/app/bolkar",
	}
}

// Policy evaluates guard decisions against a fixed set of paths.
type Policy struct {
	paths Paths
}

// New creates a Policy. Empty fields in paths fall back to DefaultPaths.
func New(paths Paths) *Policy {
	def := DefaultPaths()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&paths.Login, def.Login)
	fill(&paths.Onboarding, def.Onboarding)
	fill(&paths.Root, def.Root)
	fill(&paths.PlatformOverview, def.PlatformOverview)
	fill(&paths.AppDashboard, def.AppDashboard)
	fill(&paths.AgentHome, def.AgentHome)
	return &Policy{paths: paths}
}

// Paths returns the configured paths.
func (p *Policy) Paths() Paths {
	return p.paths
}

// HomePathForRole returns the landing page for role. Unknown or missing roles
// land on the login page.
func (p *Policy) HomePathForRole(role domain.Role) string {
	switch role {
	case domain.RoleSuperAdmin:
		return p.paths.PlatformOverview
	case domain.RoleBusinessOwner:
		return p.paths.AppDashboard
	case domain.RoleAgent:
		return p.paths.AgentHome
	default:
		return p.paths.Login
	}
}

// Decide maps a session state and requested path to a single action.
// allowedRoles == nil means the path has no role restriction.
//
// Decide never redirects to currentPath itself, so applying its result
// repeatedly always settles.
func (p *Policy) Decide(state State, currentPath string, allowedRoles []domain.Role, role domain.Role) Action {
	var act Action
	switch state {
	case StateLoading:
		return stay()
	case StateNewUser, StateInvited:
		act = p.to(currentPath, p.paths.Onboarding)
	case StateActive:
		switch {
		case currentPath == p.paths.Login || currentPath == p.paths.Onboarding || currentPath == p.paths.Root:
			act = redirect(p.HomePathForRole(role))
		case allowedRoles != nil && !slices.Contains(allowedRoles, role):
			act = redirect(p.HomePathForRole(role))
		default:
			act = stay()
		}
	default:
		// UNAUTHENTICATED and any unrecognized state
		act = p.to(currentPath, p.paths.Login)
	}

	if act.Kind == Redirect && act.To == currentPath {
		return stay()
	}
	return act
}

func (p *Policy) to(currentPath, target string) Action {
	if currentPath == target {
		return stay()
	}
	return redirect(target)
}
