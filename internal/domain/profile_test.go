package domain_test

import (
	"testing"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalizeProfile_Status(t *testing.T) {
	tests := []struct {
		name   string
		doc    domain.ProfileDocument
		source domain.LookupSource
		want   domain.Status
	}{
		{"found by phone is invited", domain.ProfileDocument{Role: "agent", Status: "active"}, domain.SourcePhone, domain.StatusInvited},
		{"explicit active", domain.ProfileDocument{Role: "agent", Status: "active"}, domain.SourceUID, domain.StatusActive},
		{"explicit invited under uid", domain.ProfileDocument{Role: "agent", Status: "invited"}, domain.SourceUID, domain.StatusInvited},
		{"legacy doc with role", domain.ProfileDocument{Role: "business_owner", IsActive: boolPtr(true)}, domain.SourceUID, domain.StatusActive},
		{"legacy doc without role", domain.ProfileDocument{IsActive: boolPtr(true)}, domain.SourceUID, domain.StatusNewUser},
		{"unknown status string", domain.ProfileDocument{Role: "agent", Status: "online"}, domain.SourceUID, domain.StatusActive},
		{"active without role demoted", domain.ProfileDocument{Status: "active"}, domain.SourceUID, domain.StatusNewUser},
		{"unknown role demoted", domain.ProfileDocument{Role: "janitor", Status: "active"}, domain.SourceUID, domain.StatusNewUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.NormalizeProfile(tt.doc, tt.source)
			assert.Equal(t, tt.want, got.Status)
			if got.Status == domain.StatusActive {
				assert.NotEqual(t, domain.RoleNone, got.Role)
			}
		})
	}
}

func TestNormalizeProfile_PermissionPrecedence(t *testing.T) {
	t.Run("role defaults when permissions absent", func(t *testing.T) {
		owner := domain.NormalizeProfile(domain.ProfileDocument{Role: "business_owner"}, domain.SourceUID)
		assert.Equal(t, domain.Permissions{CanCreateAds: true, CanViewLeads: true, CanAccessSite: true, CanViewRoi: true, CanManageTeam: true}, owner.Permissions)

		agent := domain.NormalizeProfile(domain.ProfileDocument{Role: "agent"}, domain.SourceUID)
		assert.Equal(t, domain.Permissions{CanViewLeads: true, CanAccessSite: true}, agent.Permissions)

		none := domain.NormalizeProfile(domain.ProfileDocument{}, domain.SourceUID)
		assert.Equal(t, domain.Permissions{}, none.Permissions)
	})

	t.Run("explicit permissions win over role", func(t *testing.T) {
		perms := &domain.PermissionsDocument{
			CanViewLeads:  boolPtr(true),
			CanManageTeam: boolPtr(false),
		}
		doc := domain.ProfileDocument{Role: "business_owner", Permissions: perms}
		got := domain.NormalizeProfile(doc, domain.SourceUID)
		assert.Equal(t, domain.Permissions{CanViewLeads: true}, got.Permissions)
	})

	t.Run("agent granted ads explicitly", func(t *testing.T) {
		doc := domain.ProfileDocument{
			Role:        "agent",
			Permissions: &domain.PermissionsDocument{CanCreateAds: boolPtr(true)},
		}
		got := domain.NormalizeProfile(doc, domain.SourceUID)
		assert.True(t, got.Permissions.CanCreateAds)
		assert.False(t, got.Permissions.CanViewLeads)
	})
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, domain.RoleAgent, domain.ParseRole("agent"))
	assert.Equal(t, domain.RoleSuperAdmin, domain.ParseRole(" super_admin "))
	assert.Equal(t, domain.RoleNone, domain.ParseRole(""))
	assert.Equal(t, domain.RoleNone, domain.ParseRole("admin"))
}

func TestPermissions_Has(t *testing.T) {
	p := domain.Permissions{CanViewLeads: true}
	assert.True(t, p.Has(domain.PermViewLeads))
	assert.False(t, p.Has(domain.PermManageTeam))
	assert.False(t, p.Has(domain.Permission("can_fly")))
	assert.Equal(t, true, p.Fields()["can_view_leads"])
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"9876543210", "+919876543210", false},
		{"98765 43210", "+919876543210", false},
		{"+1 (415) 555-0100", "+14155550100", false},
		{"12345", "", true},
		{"98765abc10", "", true},
		{"+91٩٨٧٦٥٤٣٢١٠", "", true},
		{"९८७६५४३२१०", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.NormalizePhone(tt.in, "+91")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_Same(t *testing.T) {
	a := &domain.Identity{ID: "u1", PhoneNumber: "+1"}
	b := &domain.Identity{ID: "u1", PhoneNumber: "+1"}
	c := &domain.Identity{ID: "u2", PhoneNumber: "+1"}
	var nilID *domain.Identity

	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))
	assert.False(t, a.Same(nil))
	assert.True(t, nilID.Same(nil))
}

func TestNewListResponse(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page := domain.NewListResponse(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page.Data)
	assert.True(t, page.HasMore)
	assert.Equal(t, 5, page.Total)

	empty := domain.NewListResponse(items, 9, 2)
	assert.Empty(t, empty.Data)
	assert.NotNil(t, empty.Data)
	assert.False(t, empty.HasMore)
}
