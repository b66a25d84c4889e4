package domain

// Role enumerates the staff roles that can own a ticket.
type Role string

const (
	RoleManager              Role = "manager"
	RoleJuniorManager        Role = "junior_manager"
	RoleController           Role = "controller"
	RoleTechnician           Role = "technician"
	RoleWarehouse            Role = "warehouse"
	RoleCallCenter           Role = "call_center"
	RoleCallCenterSupervisor Role = "call_center_supervisor"
)

var knownRoles = map[Role]struct{}{
	RoleManager:              {},
	RoleJuniorManager:        {},
	RoleController:           {},
	RoleTechnician:           {},
	RoleWarehouse:            {},
	RoleCallCenter:           {},
	RoleCallCenterSupervisor: {},
}

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// AllRoles returns every known role.
func AllRoles() []Role {
	return []Role{
		RoleManager,
		RoleJuniorManager,
		RoleController,
		RoleTechnician,
		RoleWarehouse,
		RoleCallCenter,
		RoleCallCenterSupervisor,
	}
}
