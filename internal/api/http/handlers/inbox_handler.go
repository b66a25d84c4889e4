package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ispdesk/routing-service/internal/api/dto"
	"github.com/ispdesk/routing-service/internal/auth"
	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/service"
	apperrors "github.com/ispdesk/routing-service/pkg/util"
)

// InboxHandler exposes the role inbox endpoints.
type InboxHandler struct {
	inbox *service.InboxService
}

// NewInboxHandler constructs handler.
func NewInboxHandler(inbox *service.InboxService) *InboxHandler {
	return &InboxHandler{inbox: inbox}
}

// List GET /inbox.
func (h *InboxHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}

	filters := service.InboxFilters{
		IncludeRead: c.QueryBool("include_read", false),
	}
	if kindStr := c.Query("ticket_kind"); kindStr != "" {
		kind := domain.TicketKind(kindStr)
		filters.Kind = &kind
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.TicketPriority(priorityStr)
		filters.Priority = &priority
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	result, err := h.inbox.ListInbox(c.UserContext(), principal.Role(), page, pageSize, filters)
	if err != nil {
		return err
	}

	items := make([]dto.InboxItemResponse, 0, len(result.Items))
	for _, entry := range result.Items {
		items = append(items, dto.InboxItemResponse{
			ID:                entry.Message.ID,
			TicketID:          entry.Message.TicketID,
			TicketKind:        entry.Message.TicketKind,
			MessageType:       entry.Message.MessageType,
			Title:             entry.Message.Title,
			Priority:          entry.Message.Priority,
			IsRead:            entry.Message.IsRead,
			TicketDescription: entry.TicketDescription,
			TicketStatus:      entry.TicketStatus,
			TicketContact:     entry.TicketContact,
			CreatedAt:         entry.Message.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": dto.InboxPageResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		HasNext:    result.HasNext,
		HasPrev:    result.HasPrev,
	}})
}

// UnreadCount GET /inbox/unread-count.
func (h *InboxHandler) UnreadCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}

	count, err := h.inbox.GetUnreadCount(c.UserContext(), principal.Role())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{
		Role:   principal.Role(),
		Unread: count,
	}})
}

// MarkRead POST /inbox/:id/read.
func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}

	changed, err := h.inbox.MarkAsRead(c.UserContext(), c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MarkReadResponse{
		MessageID: c.Params("id"),
		Changed:   changed,
	}})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
