package policy_test

import (
	"testing"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"

	"github.com/stretchr/testify/assert"
)

func TestRoutes_Canonical(t *testing.T) {
	routes := policy.NewRoutes(policy.New(policy.DefaultPaths()))

	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/login", "/login"},
		{"login", "/login"},
		{"/app/leads/", "/app/leads"},
		{"/app/leads?tab=new", "/app/leads"},
		{"/app", "/app/dashboard"},
		{"/platform", "/platform/overview"},
		{"/agent", "/app/bolkar"},
		{"/agent/anything/deep", "/app/bolkar"},
		{"/agents", "/"},
		{"/app/../platform/logs", "/platform/logs"},
		{"/definitely/not/here", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, routes.Canonical(tt.in))
		})
	}
}

func TestRoutes_AllowedRoles(t *testing.T) {
	routes := policy.NewRoutes(policy.New(policy.DefaultPaths()))

	assert.Nil(t, routes.AllowedRoles("/login"))
	assert.Nil(t, routes.AllowedRoles("/onboarding"))
	assert.Equal(t, []domain.Role{domain.RoleSuperAdmin}, routes.AllowedRoles("/platform/users"))
	assert.ElementsMatch(t, []domain.Role{domain.RoleAgent, domain.RoleBusinessOwner}, routes.AllowedRoles("/app/crm"))
	assert.NotEmpty(t, routes.All())
}

func TestRoutes_Evaluate(t *testing.T) {
	routes := policy.NewRoutes(policy.New(policy.DefaultPaths()))

	t.Run("index path redirects to canonical", func(t *testing.T) {
		d := routes.Evaluate(policy.StateActive, "/app", domain.RoleBusinessOwner)
		assert.Equal(t, policy.Action{Kind: policy.Redirect, To: "/app/dashboard"}, d.Action)
	})

	t.Run("legacy agent tree", func(t *testing.T) {
		d := routes.Evaluate(policy.StateActive, "/agent/today", domain.RoleAgent)
		assert.Equal(t, "/app/bolkar", d.Canonical)
		assert.Equal(t, policy.Action{Kind: policy.Redirect, To: "/app/bolkar"}, d.Action)
	})

	t.Run("unknown path for active user goes home", func(t *testing.T) {
		d := routes.Evaluate(policy.StateActive, "/nope", domain.RoleSuperAdmin)
		assert.Equal(t, policy.Action{Kind: policy.Redirect, To: "/platform/overview"}, d.Action)
	})

	t.Run("loading keeps the requested path", func(t *testing.T) {
		d := routes.Evaluate(policy.StateLoading, "/app", domain.RoleNone)
		assert.Equal(t, policy.Stay, d.Action.Kind)
	})

	t.Run("wrong tree for role", func(t *testing.T) {
		d := routes.Evaluate(policy.StateActive, "/platform/tenants", domain.RoleBusinessOwner)
		assert.Equal(t, policy.Action{Kind: policy.Redirect, To: "/app/dashboard"}, d.Action)
	})
}

// Following guard redirects from any starting point must settle on a STAY.
func TestRoutes_EvaluateSettles(t *testing.T) {
	for _, agentHome := range []string{"/app/bolkar", "/app/dashboard", "/agent/home"} {
		paths := policy.DefaultPaths()
		paths.AgentHome = agentHome
		routes := policy.NewRoutes(policy.New(paths))

		starts := append([]string{}, samplePaths...)
		for _, r := range routes.All() {
			starts = append(starts, r.Path)
		}

		for _, s := range allStates {
			for _, role := range allRoles {
				for _, start := range starts {
					cur := start
					settled := false
					for i := 0; i < 5; i++ {
						d := routes.Evaluate(s, cur, role)
						if d.Action.Kind == policy.Stay {
							settled = true
							break
						}
						cur = d.Action.To
					}
					assert.True(t, settled, "no fixpoint: home=%s state=%s role=%q start=%s", agentHome, s, role, start)
				}
			}
		}
	}
}
