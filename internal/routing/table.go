package routing

import "github.com/ispdesk/routing-service/internal/domain"

// Table is the static per-kind role matrix. It is the single source of
// truth for whether a hand-off is legal, for both the initial
// assignment (empty from-role) and subsequent transfers.
type Table struct {
	targets map[domain.TicketKind]map[domain.Role][]domain.Role
	entry   map[domain.TicketKind][]domain.Role
}

// NewTable builds the default routing matrix. Connection and service
// tickets follow different workflows: service requests let the manager
// dispatch straight to a technician, connection requests go through the
// junior manager / controller chain.
func NewTable() *Table {
	return &Table{
		targets: map[domain.TicketKind]map[domain.Role][]domain.Role{
			domain.KindConnection: {
				domain.RoleManager:              {domain.RoleJuniorManager, domain.RoleController, domain.RoleCallCenter},
				domain.RoleJuniorManager:        {domain.RoleController, domain.RoleManager},
				domain.RoleController:           {domain.RoleTechnician, domain.RoleManager},
				domain.RoleTechnician:           {domain.RoleWarehouse, domain.RoleController, domain.RoleManager},
				domain.RoleWarehouse:            {domain.RoleTechnician, domain.RoleController},
				domain.RoleCallCenter:           {domain.RoleCallCenterSupervisor, domain.RoleManager},
				domain.RoleCallCenterSupervisor: {domain.RoleCallCenter, domain.RoleManager},
			},
			domain.KindService: {
				domain.RoleManager:              {domain.RoleTechnician, domain.RoleController, domain.RoleCallCenter},
				domain.RoleController:           {domain.RoleTechnician, domain.RoleManager},
				domain.RoleTechnician:           {domain.RoleWarehouse, domain.RoleController, domain.RoleManager},
				domain.RoleWarehouse:            {domain.RoleTechnician, domain.RoleController},
				domain.RoleCallCenter:           {domain.RoleCallCenterSupervisor, domain.RoleManager},
				domain.RoleCallCenterSupervisor: {domain.RoleCallCenter, domain.RoleManager},
			},
		},
		entry: map[domain.TicketKind][]domain.Role{
			domain.KindConnection: {domain.RoleManager, domain.RoleCallCenter},
			domain.KindService:    {domain.RoleManager, domain.RoleCallCenter},
		},
	}
}

// AllowedTargets returns the roles a ticket of the given kind may be
// handed to from the given role. The returned slice is a copy.
func (t *Table) AllowedTargets(kind domain.TicketKind, from domain.Role) []domain.Role {
	matrix, ok := t.targets[kind]
	if !ok {
		return nil
	}
	return append([]domain.Role(nil), matrix[from]...)
}

// CanTransfer reports whether from → to is legal for the kind.
func (t *Table) CanTransfer(kind domain.TicketKind, from, to domain.Role) bool {
	for _, candidate := range t.targets[kind][from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// EntryRoles returns the roles that may receive a ticket's initial
// assignment. The returned slice is a copy.
func (t *Table) EntryRoles(kind domain.TicketKind) []domain.Role {
	return append([]domain.Role(nil), t.entry[kind]...)
}

// CanAssign reports whether a freshly filed ticket of the kind may be
// assigned to the role.
func (t *Table) CanAssign(kind domain.TicketKind, to domain.Role) bool {
	for _, candidate := range t.entry[kind] {
		if candidate == to {
			return true
		}
	}
	return false
}
