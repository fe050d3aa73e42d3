package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermCustomersView = "customers.view"
	PermCustomersEdit = "customers.edit"

	PermEmployeesView = "employees.view"
	PermEmployeesEdit = "employees.edit"

	PermProjectsView = "projects.view"
	PermProjectsEdit = "projects.edit"

	PermTasksView = "tasks.view"
	PermTasksEdit = "tasks.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermCustomersView,
		PermCustomersEdit,
		PermEmployeesView,
		PermEmployeesEdit,
		PermProjectsView,
		PermProjectsEdit,
		PermTasksView,
		PermTasksEdit,
	}
}
