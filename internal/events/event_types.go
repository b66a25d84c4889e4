package events

import (
	"time"

	"github.com/ispdesk/routing-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketTransferred EventType = "ticket_transferred"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	ActorID    string            `json:"actor_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload"`
}

// TicketAssignedPayload describes a ticket's first assignment.
type TicketAssignedPayload struct {
	Role       domain.Role `json:"role"`
	TransferID string      `json:"transfer_id"`
}

// TicketTransferredPayload describes a hand-off between roles.
type TicketTransferredPayload struct {
	FromRole   domain.Role `json:"from_role"`
	ToRole     domain.Role `json:"to_role"`
	TransferID string      `json:"transfer_id"`
	Reason     string      `json:"reason,omitempty"`
}
