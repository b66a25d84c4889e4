package dto

import (
	"time"

	"github.com/ispdesk/routing-service/internal/domain"
)

// InboxItemResponse is one inbox entry with its ticket projection.
type InboxItemResponse struct {
	ID                string                  `json:"id"`
	TicketID          string                  `json:"ticket_id"`
	TicketKind        domain.TicketKind       `json:"ticket_kind"`
	MessageType       domain.InboxMessageType `json:"message_type"`
	Title             string                  `json:"title"`
	Priority          domain.TicketPriority   `json:"priority"`
	IsRead            bool                    `json:"is_read"`
	TicketDescription string                  `json:"ticket_description"`
	TicketStatus      domain.TicketStatus     `json:"ticket_status"`
	TicketContact     string                  `json:"ticket_contact"`
	CreatedAt         time.Time               `json:"created_at"`
}

// InboxPageResponse is a paginated inbox listing.
type InboxPageResponse struct {
	Items      []InboxItemResponse `json:"items"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int                 `json:"total_count"`
	TotalPages int                 `json:"total_pages"`
	HasNext    bool                `json:"has_next"`
	HasPrev    bool                `json:"has_prev"`
}

// UnreadCountResponse carries a role's unread counter.
type UnreadCountResponse struct {
	Role   domain.Role `json:"role"`
	Unread int         `json:"unread"`
}

// MarkReadResponse reports whether the toggle changed anything.
type MarkReadResponse struct {
	MessageID string `json:"message_id"`
	Changed   bool   `json:"changed"`
}
