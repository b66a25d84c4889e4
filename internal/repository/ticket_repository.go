package repository

import (
	"context"
	"fmt"

	"github.com/ispdesk/routing-service/internal/domain"
)

// TicketRepository reads tickets and performs the guarded ownership
// update. It is the only write path for a ticket's owning role.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByRef(ctx context.Context, ref domain.TicketRef) (*domain.Ticket, error)
	// ReassignOwner conditionally moves ownership from one role to
	// another. An empty from means the ticket must be unassigned.
	// Returns false when the guard matched no row, i.e. ownership
	// changed since the caller last looked.
	ReassignOwner(ctx context.Context, ref domain.TicketRef, from, to domain.Role) (bool, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

func ticketTable(kind domain.TicketKind) (string, error) {
	switch kind {
	case domain.KindConnection:
		return "connection_tickets", nil
	case domain.KindService:
		return "service_tickets", nil
	}
	return "", fmt.Errorf("unknown ticket kind %q", kind)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	table, err := ticketTable(ticket.Ref.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (ticket_id, role_current, status, priority, description, address, contact_info)
        VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`, table)
	return r.db.QueryRow(ctx, query,
		ticket.Ref.ID,
		string(ticket.OwnerRole),
		ticket.Status,
		ticket.Priority,
		ticket.Description,
		ticket.Address,
		ticket.ContactInfo,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByRef(ctx context.Context, ref domain.TicketRef) (*domain.Ticket, error) {
	table, err := ticketTable(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT ticket_id, COALESCE(role_current,''), status, priority, description, address, contact_info, created_at, updated_at
        FROM %s WHERE ticket_id=$1`, table)

	ticket := domain.Ticket{Ref: ref}
	var owner string
	if err := r.db.QueryRow(ctx, query, ref.ID).Scan(
		&ticket.Ref.ID,
		&owner,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Description,
		&ticket.Address,
		&ticket.ContactInfo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.OwnerRole = domain.Role(owner)
	return &ticket, nil
}

func (r *ticketRepository) ReassignOwner(ctx context.Context, ref domain.TicketRef, from, to domain.Role) (bool, error) {
	table, err := ticketTable(ref.Kind)
	if err != nil {
		return false, err
	}

	var query string
	var args []any
	if from == "" {
		query = fmt.Sprintf(`
            UPDATE %s SET role_current=$1, updated_at=NOW()
            WHERE ticket_id=$2 AND role_current IS NULL`, table)
		args = []any{to, ref.ID}
	} else {
		query = fmt.Sprintf(`
            UPDATE %s SET role_current=$1, updated_at=NOW()
            WHERE ticket_id=$2 AND role_current=$3`, table)
		args = []any{to, ref.ID, from}
	}

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
