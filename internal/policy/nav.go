package policy

import "github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"

var (
	navHome   = domain.NavigationItem{Key: "HomeDashboard", Label: "Home", Path: "/app/dashboard", Icon: "layout-dashboard"}
	navLeads  = domain.NavigationItem{Key: "SalesInbox", Label: "Leads", Path: "/app/leads", Icon: "list"}
	navSite   = domain.NavigationItem{Key: "SiteOps", Label: "Bolkar", Path: "/app/bolkar", Icon: "mic"}
	navGrowth = domain.NavigationItem{Key: "GrowthStudio", Label: "Ads", Path: "/app/growth", Icon: "rocket"}
	navTeam   = domain.NavigationItem{Key: "TeamManager", Label: "Team", Path: "/app/team", Icon: "users"}

	platformNav = []domain.NavigationItem{
		{Key: "PlatformOverview", Label: "Overview", Path: "/platform/overview", Icon: "layout-dashboard"},
		{Key: "PlatformTenants", Label: "Tenants", Path: "/platform/tenants", Icon: "building-2"},
		{Key: "PlatformUsers", Label: "Users", Path: "/platform/users", Icon: "users"},
		{Key: "PlatformSubscriptions", Label: "Subscriptions", Path: "/platform/subscriptions", Icon: "credit-card"},
		{Key: "PlatformLogs", Label: "System Logs", Path: "/platform/logs", Icon: "file-text"},
	}
)

// DeriveNav returns the navigation entries for role and perms, in display
// order. Super admins get the platform sidebar; every other role gets the
// app tabs unlocked by its permission flags.
func DeriveNav(role domain.Role, perms domain.Permissions) []domain.NavigationItem {
	if role == domain.RoleSuperAdmin {
		out := make([]domain.NavigationItem, len(platformNav))
		copy(out, platformNav)
		return out
	}

	items := []domain.NavigationItem{navHome}
	if perms.CanViewLeads {
		items = append(items, navLeads)
	}
	if perms.CanAccessSite {
		items = append(items, navSite)
	}
	if perms.CanCreateAds {
		items = append(items, navGrowth)
	}
	if perms.CanManageTeam {
		items = append(items, navTeam)
	}
	return items
}
