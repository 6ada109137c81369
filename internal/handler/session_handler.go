package handler

import (
	"net/http"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"
)

// sessionResponse is the body of GET /v1/session and of onboarding calls.
type sessionResponse struct {
	State      policy.State            `json:"state"`
	Identity   *domain.Identity        `json:"identity"`
	Profile    *domain.Profile         `json:"profile"`
	Status     domain.Status           `json:"status,omitempty"`
	Loading    bool                    `json:"loading"`
	Landing    string                  `json:"landing,omitempty"`
	Navigation []domain.NavigationItem `json:"navigation"`
}

// newSessionResponse describes snap together with where the client should
// land from the root path.
func newSessionResponse(pol *policy.Policy, snap session.Snapshot) sessionResponse {
	state := snap.PolicyState()
	resp := sessionResponse{
		State:      state,
		Identity:   snap.Identity,
		Profile:    snap.Profile,
		Status:     snap.Status,
		Loading:    snap.Loading,
		Navigation: []domain.NavigationItem{},
	}
	if act := pol.Decide(state, pol.Paths().Root, nil, snap.Role()); act.Kind == policy.Redirect {
		resp.Landing = act.To
	}
	if state == policy.StateActive {
		resp.Navigation = policy.DeriveNav(snap.Role(), snap.Permissions())
	}
	return resp
}

// ============================================================
// Session — GET /v1/session
// ============================================================

// sessionHandler re-resolves once when the current profile came from a
// failed lookup, so a transient store error does not pin the client to
// onboarding.
func sessionHandler(pol *policy.Policy, awaitTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := SnapshotFromContext(r.Context())
		if st := SessionFromContext(r.Context()); st != nil && st.RetryFailed() {
			snap = awaitSnapshot(r.Context(), st, awaitTimeout)
		}
		writeJSON(w, http.StatusOK, newSessionResponse(pol, snap))
	}
}

// ============================================================
// Navigation — GET /v1/navigation
// ============================================================

func navigationHandler(pol *policy.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := SnapshotFromContext(r.Context())
		if snap.PolicyState() != policy.StateActive {
			writeJSON(w, http.StatusOK, domain.NavigationResponse{Role: domain.RoleNone, Items: []domain.NavigationItem{}})
			return
		}
		role := snap.Role()
		writeJSON(w, http.StatusOK, domain.NavigationResponse{
			Role:     role,
			HomePath: pol.HomePathForRole(role),
			Items:    policy.DeriveNav(role, snap.Permissions()),
		})
	}
}

// ============================================================
// Routes — GET /v1/routes, GET /v1/routes/decide?path=
// ============================================================

func routesHandler(routes *policy.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, routes.All())
	}
}

func decideHandler(routes *policy.Routes, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/routes/decide")
		defer span.End()

		snap := SnapshotFromContext(r.Context())
		state := snap.PolicyState()
		decision := routes.Evaluate(state, r.URL.Query().Get("path"), snap.Role())
		metrics.IncrDecision(string(state), string(decision.Action.Kind))

		writeJSON(w, http.StatusOK, decision)
	}
}
