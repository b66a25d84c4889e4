package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketKind distinguishes the two ticket workflows.
type TicketKind string

const (
	KindConnection TicketKind = "connection"
	KindService    TicketKind = "service"
)

// Valid reports whether the kind is known.
func (k TicketKind) Valid() bool {
	return k == KindConnection || k == KindService
}

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	// Connection ticket lifecycle.
	StatusNew        TicketStatus = "new"
	StatusPending    TicketStatus = "pending"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in_progress"
	StatusCompleted  TicketStatus = "completed"
	StatusCancelled  TicketStatus = "cancelled"

	// Service ticket lifecycle.
	StatusCreated TicketStatus = "created"
	StatusClosed  TicketStatus = "closed"
)

// Terminal reports whether a ticket in this status accepts no further
// transfers.
func (s TicketStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency, used for inbox ordering.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for inbox sorting: urgent > high > medium > low.
func (p TicketPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// TicketRef identifies one ticket across both kinds. Connection ticket
// ids are decimal numbers, service ticket ids are UUID strings; the two
// formats are never interchangeable.
type TicketRef struct {
	Kind TicketKind
	ID   string
}

// NewTicketRef validates the id shape for the kind.
func NewTicketRef(kind TicketKind, id string) (TicketRef, error) {
	if !kind.Valid() {
		return TicketRef{}, fmt.Errorf("unknown ticket kind %q", kind)
	}
	if id == "" {
		return TicketRef{}, fmt.Errorf("empty ticket id")
	}
	switch kind {
	case KindConnection:
		for _, ch := range id {
			if ch < '0' || ch > '9' {
				return TicketRef{}, fmt.Errorf("connection ticket id %q is not numeric", id)
			}
		}
	case KindService:
		if _, err := uuid.Parse(id); err != nil {
			return TicketRef{}, fmt.Errorf("service ticket id %q is not a UUID: %w", id, err)
		}
	}
	return TicketRef{Kind: kind, ID: id}, nil
}

func (r TicketRef) String() string {
	return string(r.Kind) + "/" + r.ID
}

// Ticket is the routing core's view of a ticket row. The payload
// columns (description, address, contact) are carried but never
// interpreted here.
type Ticket struct {
	Ref         TicketRef
	OwnerRole   Role // empty until first assignment
	Status      TicketStatus
	Priority    TicketPriority
	Description string
	Address     string
	ContactInfo string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
