package dto

import (
	"time"

	"github.com/ispdesk/routing-service/internal/domain"
)

// TransferRequest payload for POST /transfers.
type TransferRequest struct {
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	FromRole   domain.Role       `json:"from_role"`
	ToRole     domain.Role       `json:"to_role"`
	Reason     string            `json:"reason"`
	Notes      string            `json:"notes"`
}

// AssignRequest payload for POST /assignments.
type AssignRequest struct {
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	ToRole     domain.Role       `json:"to_role"`
	Reason     string            `json:"reason"`
}

// RollbackRequest payload for POST /transfers/:id/rollback.
type RollbackRequest struct {
	Note string `json:"note"`
}

// TransferResponse reports a committed hand-off.
type TransferResponse struct {
	TransferID string            `json:"transfer_id"`
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	FromRole   domain.Role       `json:"from_role,omitempty"`
	ToRole     domain.Role       `json:"to_role"`
	ActorID    string            `json:"actor_id"`
	Reason     string            `json:"reason,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TransferRecordResponse is one ledger entry.
type TransferRecordResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	FromRole   domain.Role       `json:"from_role,omitempty"`
	ToRole     domain.Role       `json:"to_role"`
	ActorID    string            `json:"actor_id"`
	Reason     string            `json:"reason,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TransferOptionsResponse lists legal targets for a role.
type TransferOptionsResponse struct {
	TicketKind domain.TicketKind `json:"ticket_kind"`
	Role       domain.Role       `json:"role"`
	Targets    []domain.Role     `json:"targets"`
}
