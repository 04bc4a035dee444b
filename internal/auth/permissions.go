// internal/auth/permissions.go
package auth

const (
	RoleSuperAdmin     = "super_admin"
	RoleAdmin          = "admin"
	RoleMinistryLeader = "ministry_leader"
	RoleVolunteer      = "volunteer"
	RoleMember         = "member"
)

const (
	PermManageUsers        = "manage_users"
	PermManageMembers      = "manage_members"
	PermViewMembers        = "view_members"
	PermSendMessages       = "send_messages"
	PermViewAnalytics      = "view_analytics"
	PermManageTemplates    = "manage_templates"
	PermCreateTemplates    = "create_templates"
	PermManageAutomation   = "manage_automation"
	PermCreateAutomation   = "create_automation"
	PermManageOrganization = "manage_organization"
	PermExportData         = "export_data"
	PermImportData         = "import_data"
	PermViewProfile        = "view_profile"
	PermUpdateProfile      = "update_profile"
	PermSubmitWelfare      = "submit_welfare"
	PermReviewWelfare      = "review_welfare"
	PermPlatformAdmin      = "platform_admin"
)

var allPermissions = []string{
	PermManageUsers, PermManageMembers, PermViewMembers, PermSendMessages,
	PermViewAnalytics, PermManageTemplates, PermCreateTemplates,
	PermManageAutomation, PermCreateAutomation, PermManageOrganization,
	PermExportData, PermImportData, PermViewProfile, PermUpdateProfile,
	PermSubmitWelfare, PermReviewWelfare, PermPlatformAdmin,
}

var rolePermissions = map[string][]string{
	RoleSuperAdmin: allPermissions,
	RoleAdmin: {
		PermManageUsers, PermManageMembers, PermViewMembers, PermSendMessages,
		PermViewAnalytics, PermManageTemplates, PermCreateTemplates,
		PermManageAutomation, PermCreateAutomation, PermManageOrganization,
		PermExportData, PermImportData, PermReviewWelfare, PermSubmitWelfare,
	},
	RoleMinistryLeader: {
		PermManageMembers, PermViewMembers, PermSendMessages, PermViewAnalytics,
		PermManageTemplates, PermCreateTemplates, PermCreateAutomation,
		PermExportData, PermReviewWelfare, PermSubmitWelfare,
	},
	RoleVolunteer: {
		PermViewMembers, PermSendMessages, PermCreateTemplates, PermSubmitWelfare,
	},
	RoleMember: {
		PermViewProfile, PermUpdateProfile, PermSubmitWelfare,
	},
}

// ValidRoles in descending order of privilege.
var ValidRoles = []string{RoleSuperAdmin, RoleAdmin, RoleMinistryLeader, RoleVolunteer, RoleMember}

func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission is true when role holds at least one of permissions.
func HasAnyPermission(role string, permissions ...string) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// RolePermissions returns a copy of the permission list for role.
func RolePermissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// IsAdmin reports whether role may act across organizations and on
// resources it does not own.
func IsAdmin(role string) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}
