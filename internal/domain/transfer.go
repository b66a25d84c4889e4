package domain

import "time"

// TransferRecord is an immutable ledger entry for one hand-off.
// FromRole is empty for the initial assignment.
type TransferRecord struct {
	ID         string
	TicketID   string
	TicketKind TicketKind
	FromRole   Role
	ToRole     Role
	ActorID    string
	Reason     string
	Notes      string
	CreatedAt  time.Time
}
