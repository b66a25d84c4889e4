package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ispdesk/routing-service/internal/api/dto"
	"github.com/ispdesk/routing-service/internal/auth"
	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/service"
	apperrors "github.com/ispdesk/routing-service/pkg/util"
)

// TransfersHandler exposes hand-off endpoints.
type TransfersHandler struct {
	transfers *service.TransferService
}

// NewTransfersHandler constructs handler.
func NewTransfersHandler(transfers *service.TransferService) *TransfersHandler {
	return &TransfersHandler{transfers: transfers}
}

// Execute POST /transfers.
func (h *TransfersHandler) Execute(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ref, err := domain.NewTicketRef(req.TicketKind, req.TicketID)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.transfers.ExecuteTransfer(c.UserContext(), service.TransferInput{
		Ref:      ref,
		FromRole: req.FromRole,
		ToRole:   req.ToRole,
		ActorID:  principal.Staff.ID,
		Reason:   req.Reason,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": transferResponse(result)})
}

// Assign POST /assignments routes a freshly filed ticket to its first role.
func (h *TransfersHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ref, err := domain.NewTicketRef(req.TicketKind, req.TicketID)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.transfers.AssignInitial(c.UserContext(), ref, req.ToRole, principal.Staff.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": transferResponse(result)})
}

// Rollback POST /transfers/:id/rollback.
func (h *TransfersHandler) Rollback(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.RollbackRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.transfers.RollbackTransfer(c.UserContext(), c.Params("id"), principal.Staff.ID, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": transferResponse(result)})
}

// Options GET /transfers/options.
func (h *TransfersHandler) Options(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	kind := domain.TicketKind(c.Query("ticket_kind"))
	if !kind.Valid() {
		return apperrors.NewInvalidTicketKind(string(kind))
	}
	role := principal.Role()
	if queried := c.Query("role"); queried != "" {
		role = domain.Role(queried)
		if !role.Valid() {
			return apperrors.NewInvalidRole(queried)
		}
	}

	targets := h.transfers.GetTransferOptions(kind, role)
	return c.JSON(fiber.Map{"data": dto.TransferOptionsResponse{
		TicketKind: kind,
		Role:       role,
		Targets:    targets,
	}})
}

// History GET /tickets/:kind/:id/history.
func (h *TransfersHandler) History(c *fiber.Ctx) error {
	ref, err := domain.NewTicketRef(domain.TicketKind(c.Params("kind")), c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	records, err := h.transfers.GetTransferHistory(c.UserContext(), ref)
	if err != nil {
		return err
	}
	items := make([]dto.TransferRecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.TransferRecordResponse{
			ID:         rec.ID,
			TicketID:   rec.TicketID,
			TicketKind: rec.TicketKind,
			FromRole:   rec.FromRole,
			ToRole:     rec.ToRole,
			ActorID:    rec.ActorID,
			Reason:     rec.Reason,
			Notes:      rec.Notes,
			CreatedAt:  rec.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func transferResponse(result *service.TransferResult) dto.TransferResponse {
	return dto.TransferResponse{
		TransferID: result.TransferID,
		TicketID:   result.Ref.ID,
		TicketKind: result.Ref.Kind,
		FromRole:   result.FromRole,
		ToRole:     result.ToRole,
		ActorID:    result.ActorID,
		Reason:     result.Reason,
		Notes:      result.Notes,
		CreatedAt:  result.CreatedAt,
	}
}
