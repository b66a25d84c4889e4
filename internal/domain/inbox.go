package domain

import "time"

// InboxMessageType differentiates why a message landed in a role's inbox.
type InboxMessageType string

const (
	MessageTypeApplication  InboxMessageType = "application"
	MessageTypeTransfer     InboxMessageType = "transfer"
	MessageTypeNotification InboxMessageType = "notification"
	MessageTypeReminder     InboxMessageType = "reminder"
)

// InboxMessage is one entry in a role's work queue. Messages are
// retired (marked read) when the ticket moves away from the role and
// physically deleted only by the retention sweep.
type InboxMessage struct {
	ID           string
	TicketID     string
	TicketKind   TicketKind
	AssignedRole Role
	MessageType  InboxMessageType
	Title        string
	Priority     TicketPriority
	IsRead       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
