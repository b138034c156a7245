package shared

// Platform permissions guarded by the RBAC middleware. Each protected
// route declares exactly one of these.
const (
	PermDashboardView = "dashboard.view"

	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"
	PermUsersDelete = "users.delete"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesEdit   = "roles.edit"
	PermRolesDelete = "roles.delete"

	PermPermissionsView = "permissions.view"

	PermAuditView = "audit.view"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"
)

// CoreScopes lists all permissions known to the platform.
func CoreScopes() []string {
	return []string{
		PermDashboardView,
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDelete,
		PermRolesView,
		PermRolesCreate,
		PermRolesEdit,
		PermRolesDelete,
		PermPermissionsView,
		PermAuditView,
		PermSettingsView,
		PermSettingsEdit,
	}
}
