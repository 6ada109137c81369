package domain

// Plan is a tenant subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// ParsePlan returns the plan for s, defaulting to free.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanFree, PlanPro, PlanEnterprise:
		return p, true
	case "":
		return PlanFree, true
	default:
		return "", false
	}
}

// TenantStatus tracks whether a business may use the app.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Business is a tenant workspace. Its id doubles as the team join code.
type Business struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Name      string       `json:"name"`
	City      string       `json:"city,omitempty"`
	Plan      Plan         `json:"plan"`
	Status    TenantStatus `json:"status"`
	CreatedAt string       `json:"createdAt,omitempty"`
}

// Normalize fills defaults for documents written before plan and status existed.
func (b Business) Normalize() Business {
	if b.Plan == "" {
		b.Plan = PlanFree
	}
	if b.Status == "" {
		b.Status = TenantActive
	}
	return b
}

// PlatformOverview is the super admin dashboard summary.
type PlatformOverview struct {
	TotalUsers      int          `json:"totalUsers"`
	ActiveCompanies int          `json:"activeCompanies"`
	TotalCompanies  int          `json:"totalCompanies"`
	TotalLeads      int          `json:"totalLeads"`
	PendingInvites  int          `json:"pendingInvites"`
	UsersByRole     map[Role]int `json:"usersByRole"`
	CompaniesByPlan map[Plan]int `json:"companiesByPlan"`
	GeneratedAt     string       `json:"generatedAt"`
}

// TeamMember is a profile as seen by the tenant owner.
type TeamMember struct {
	Profile
	Pending bool `json:"pending"`
}

// ============================================================
// Onboarding / team / platform requests
// ============================================================

// CreateBusinessRequest is the body of POST /v1/onboarding/business.
type CreateBusinessRequest struct {
	BusinessName string `json:"businessName"`
	City         string `json:"city"`
	OwnerName    string `json:"ownerName"`
	Plan         string `json:"plan"`
}

// JoinTeamRequest is the body of POST /v1/onboarding/join.
type JoinTeamRequest struct {
	TeamCode string `json:"teamCode"`
	Name     string `json:"name"`
}

// AcceptInviteRequest is the body of POST /v1/onboarding/invite/accept.
type AcceptInviteRequest struct {
	Name string `json:"name"`
}

// UpdateProfileRequest is the body of PUT /v1/profile.
type UpdateProfileRequest struct {
	Name *string `json:"name"`
}

// InviteMemberRequest is the body of POST /v1/team/invites.
type InviteMemberRequest struct {
	PhoneNumber string       `json:"phoneNumber"`
	Name        string       `json:"name"`
	Permissions *Permissions `json:"permissions,omitempty"`
}

// UpdatePermissionsRequest is the body of PUT /v1/team/members/{uid}/permissions.
type UpdatePermissionsRequest struct {
	Permissions Permissions `json:"permissions"`
}

// UpdateTenantStatusRequest is the body of PUT /v1/platform/tenants/{id}/status.
type UpdateTenantStatusRequest struct {
	Status TenantStatus `json:"status"`
}

// SwitchRoleRequest is the body of POST /v1/dev/role.
type SwitchRoleRequest struct {
	Role string `json:"role"`
}
