package domain

import "strings"

// Role is the application-level role bound to an identity.
type Role string

const (
	RoleAgent         Role = "agent"
	RoleBusinessOwner Role = "business_owner"
	RoleSuperAdmin    Role = "super_admin"
	RoleNone          Role = "none"
)

// ParseRole maps a stored role string to a Role. Missing or unknown values
// become RoleNone.
func ParseRole(s string) Role {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAgent, RoleBusinessOwner, RoleSuperAdmin:
		return r
	default:
		return RoleNone
	}
}

// Status is the onboarding progress of a profile.
type Status string

const (
	StatusNewUser Status = "new_user"
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
)

// LookupSource records which key a profile document was found under.
type LookupSource int

const (
	SourceUID LookupSource = iota
	SourcePhone
)

// Permissions is the normalized, total permission record.
type Permissions struct {
	CanCreateAds  bool `json:"canCreateAds"`
	CanViewLeads  bool `json:"canViewLeads"`
	CanAccessSite bool `json:"canAccessSite"`
	CanViewRoi    bool `json:"canViewRoi"`
	CanManageTeam bool `json:"canManageTeam"`
}

// RoleDefaults returns the permissions implied by a role for profiles that
// carry no explicit permission record.
func RoleDefaults(role Role) Permissions {
	switch role {
	case RoleBusinessOwner, RoleSuperAdmin:
		return Permissions{
			CanCreateAds:  true,
			CanViewLeads:  true,
			CanAccessSite: true,
			CanViewRoi:    true,
			CanManageTeam: true,
		}
	case RoleAgent:
		return Permissions{CanViewLeads: true, CanAccessSite: true}
	default:
		return Permissions{}
	}
}

// Fields returns the stored (snake_case) representation of p.
func (p Permissions) Fields() map[string]any {
	return map[string]any{
		"can_create_ads":  p.CanCreateAds,
		"can_view_leads":  p.CanViewLeads,
		"can_access_site": p.CanAccessSite,
		"can_view_roi":    p.CanViewRoi,
		"can_manage_team": p.CanManageTeam,
	}
}

// PermissionsDocument is the stored permission shape. Every flag is optional.
type PermissionsDocument struct {
	CanCreateAds  *bool `json:"can_create_ads,omitempty"`
	CanViewLeads  *bool `json:"can_view_leads,omitempty"`
	CanAccessSite *bool `json:"can_access_site,omitempty"`
	CanViewRoi    *bool `json:"can_view_roi,omitempty"`
	CanManageTeam *bool `json:"can_manage_team,omitempty"`
}

// ProfileDocument is a user profile as stored in the users collection.
// Documents written by older clients may lack status and permissions.
type ProfileDocument struct {
	UID         string               `json:"uid,omitempty"`
	PhoneNumber string               `json:"phoneNumber,omitempty"`
	Role        string               `json:"role,omitempty"`
	TenantID    string               `json:"tenantId,omitempty"`
	IsActive    *bool                `json:"is_active,omitempty"`
	Name        string               `json:"name,omitempty"`
	Status      string               `json:"status,omitempty"`
	Permissions *PermissionsDocument `json:"permissions,omitempty"`
	InvitedBy   string               `json:"invitedBy,omitempty"`
	CreatedAt   string               `json:"createdAt,omitempty"`
}

// Profile is the normalized view of a ProfileDocument.
type Profile struct {
	UID         string      `json:"uid"`
	PhoneNumber string      `json:"phoneNumber"`
	Role        Role        `json:"role"`
	TenantID    string      `json:"tenantId,omitempty"`
	Status      Status      `json:"status"`
	Permissions Permissions `json:"permissions"`
	Name        string      `json:"name,omitempty"`
	InvitedBy   string      `json:"invitedBy,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
}

// NormalizeProfile is the only place where stored profiles are turned into
// Profile values. Explicit permissions take precedence over role defaults,
// and an active profile always has a role.
func NormalizeProfile(doc ProfileDocument, source LookupSource) Profile {
	role := ParseRole(doc.Role)

	p := Profile{
		UID:         doc.UID,
		PhoneNumber: doc.PhoneNumber,
		Role:        role,
		TenantID:    doc.TenantID,
		Status:      normalizeStatus(doc, role, source),
		Permissions: normalizePermissions(doc.Permissions, role),
		Name:        doc.Name,
		InvitedBy:   doc.InvitedBy,
		CreatedAt:   doc.CreatedAt,
	}
	return p
}

func normalizeStatus(doc ProfileDocument, role Role, source LookupSource) Status {
	if source == SourcePhone {
		return StatusInvited
	}

	var status Status
	switch Status(strings.TrimSpace(doc.Status)) {
	case StatusInvited:
		status = StatusInvited
	case StatusNewUser:
		status = StatusNewUser
	case StatusActive:
		status = StatusActive
	default:
		// legacy documents: an assigned role means onboarding finished
		if role != RoleNone {
			status = StatusActive
		} else {
			status = StatusNewUser
		}
	}

	if status == StatusActive && role == RoleNone {
		return StatusNewUser
	}
	return status
}

func normalizePermissions(doc *PermissionsDocument, role Role) Permissions {
	if doc == nil {
		return RoleDefaults(role)
	}
	return Permissions{
		CanCreateAds:  flag(doc.CanCreateAds),
		CanViewLeads:  flag(doc.CanViewLeads),
		CanAccessSite: flag(doc.CanAccessSite),
		CanViewRoi:    flag(doc.CanViewRoi),
		CanManageTeam: flag(doc.CanManageTeam),
	}
}

func flag(b *bool) bool {
	return b != nil && *b
}

// Permission names a single permission flag.
type Permission string

const (
	PermCreateAds  Permission = "can_create_ads"
	PermViewLeads  Permission = "can_view_leads"
	PermAccessSite Permission = "can_access_site"
	PermViewRoi    Permission = "can_view_roi"
	PermManageTeam Permission = "can_manage_team"
)

// Has reports whether the named flag is granted. Unknown names are denied.
func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermCreateAds:
		return p.CanCreateAds
	case PermViewLeads:
		return p.CanViewLeads
	case PermAccessSite:
		return p.CanAccessSite
	case PermViewRoi:
		return p.CanViewRoi
	case PermManageTeam:
		return p.CanManageTeam
	default:
		return false
	}
}
