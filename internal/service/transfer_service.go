package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/events"
	"github.com/ispdesk/routing-service/internal/observability"
	"github.com/ispdesk/routing-service/internal/repository"
	"github.com/ispdesk/routing-service/internal/routing"
	apperrors "github.com/ispdesk/routing-service/pkg/util"
)

// TransferService owns the write path for ticket ownership. Every
// ownership change flows through ExecuteTransfer's guarded conditional
// update; no other code writes the owning role.
type TransferService struct {
	uow        repository.UnitOfWork
	stores     repository.Stores
	table      *routing.Table
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TransferDependencies bundles collaborators for the service.
type TransferDependencies struct {
	UnitOfWork repository.UnitOfWork
	Stores     repository.Stores
	Table      *routing.Table
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewTransferService constructs the service.
func NewTransferService(deps TransferDependencies) *TransferService {
	return &TransferService{
		uow:        deps.UnitOfWork,
		stores:     deps.Stores,
		table:      deps.Table,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// TransferInput describes a requested hand-off. FromRole is empty for
// an initial assignment.
type TransferInput struct {
	Ref      domain.TicketRef
	FromRole domain.Role
	ToRole   domain.Role
	ActorID  string
	Reason   string
	Notes    string
}

// TransferResult reports a committed hand-off.
type TransferResult struct {
	TransferID string
	Ref        domain.TicketRef
	FromRole   domain.Role
	ToRole     domain.Role
	ActorID    string
	Reason     string
	Notes      string
	CreatedAt  time.Time
}

// ValidationResult is the outcome of ValidateTransfer. Reason is nil
// when OK.
type ValidationResult struct {
	OK     bool
	Reason *apperrors.DomainError
}

func validationFailure(err *apperrors.DomainError) ValidationResult {
	return ValidationResult{OK: false, Reason: err}
}

// ValidateTransfer runs the legality checks in order, short-circuiting
// on the first failure. It has no side effects; ExecuteTransfer repeats
// the same checks inside the transaction.
func (s *TransferService) ValidateTransfer(ctx context.Context, in TransferInput) ValidationResult {
	if !in.Ref.Kind.Valid() {
		return validationFailure(apperrors.NewInvalidTicketKind(string(in.Ref.Kind)))
	}
	if in.FromRole != "" && !in.FromRole.Valid() {
		return validationFailure(apperrors.NewInvalidRole(string(in.FromRole)))
	}
	if !in.ToRole.Valid() {
		return validationFailure(apperrors.NewInvalidRole(string(in.ToRole)))
	}
	if in.FromRole == in.ToRole {
		return validationFailure(apperrors.NewNoOpTransfer(string(in.FromRole)))
	}
	if in.FromRole == "" {
		if !s.table.CanAssign(in.Ref.Kind, in.ToRole) {
			return validationFailure(apperrors.NewTransitionNotAllowed(string(in.Ref.Kind), "", string(in.ToRole)))
		}
	} else if !s.table.CanTransfer(in.Ref.Kind, in.FromRole, in.ToRole) {
		return validationFailure(apperrors.NewTransitionNotAllowed(string(in.Ref.Kind), string(in.FromRole), string(in.ToRole)))
	}

	ticket, err := s.stores.Tickets.GetByRef(ctx, in.Ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return validationFailure(apperrors.NewTicketNotFound(string(in.Ref.Kind), in.Ref.ID))
		}
		return validationFailure(apperrors.NewStorageFailure(err))
	}
	if ticket.OwnerRole != in.FromRole {
		return validationFailure(apperrors.NewOwnershipMismatch(string(in.Ref.Kind), in.Ref.ID, string(in.FromRole), false))
	}
	if ticket.Status.Terminal() {
		return validationFailure(apperrors.NewTicketClosed(string(in.Ref.Kind), in.Ref.ID, string(ticket.Status)))
	}
	return ValidationResult{OK: true}
}

// ExecuteTransfer validates and commits a hand-off as one atomic unit:
// guarded ownership update, ledger append, source-inbox retirement and
// target-inbox creation. The notification event fires only after the
// transaction commits and cannot fail the transfer.
func (s *TransferService) ExecuteTransfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if vr := s.ValidateTransfer(ctx, in); !vr.OK {
		return nil, vr.Reason
	}

	rec := &domain.TransferRecord{
		ID:         uuid.NewString(),
		TicketID:   in.Ref.ID,
		TicketKind: in.Ref.Kind,
		FromRole:   in.FromRole,
		ToRole:     in.ToRole,
		ActorID:    in.ActorID,
		Reason:     in.Reason,
		Notes:      in.Notes,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		// Re-check terminal status under the transaction; ownership is
		// re-asserted by the guarded update itself.
		ticket, err := tx.Tickets.GetByRef(ctx, in.Ref)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewTicketNotFound(string(in.Ref.Kind), in.Ref.ID)
			}
			return apperrors.NewStorageFailure(err)
		}
		if ticket.Status.Terminal() {
			return apperrors.NewTicketClosed(string(in.Ref.Kind), in.Ref.ID, string(ticket.Status))
		}

		moved, err := tx.Tickets.ReassignOwner(ctx, in.Ref, in.FromRole, in.ToRole)
		if err != nil {
			return apperrors.NewStorageFailure(err)
		}
		if !moved {
			// The pre-check passed, so another transfer won the row
			// between validation and this update.
			return apperrors.NewOwnershipMismatch(string(in.Ref.Kind), in.Ref.ID, string(in.FromRole), true)
		}

		if err := tx.Transfers.Create(ctx, rec); err != nil {
			return apperrors.NewStorageFailure(err)
		}

		if in.FromRole != "" {
			if _, err := tx.Inbox.RetireUnread(ctx, in.Ref.ID, in.Ref.Kind, in.FromRole); err != nil {
				return apperrors.NewStorageFailure(err)
			}
		}

		msg := &domain.InboxMessage{
			ID:           uuid.NewString(),
			TicketID:     in.Ref.ID,
			TicketKind:   in.Ref.Kind,
			AssignedRole: in.ToRole,
			MessageType:  domain.MessageTypeTransfer,
			Title:        fmt.Sprintf("Ticket handed over from %s", in.FromRole),
			Priority:     domain.PriorityMedium,
		}
		if in.FromRole == "" {
			msg.MessageType = domain.MessageTypeApplication
			msg.Title = "New ticket assigned"
		}
		if err := tx.Inbox.Create(ctx, msg); err != nil {
			return apperrors.NewStorageFailure(err)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordTransfer(string(in.Ref.Kind), false)
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransfer(string(in.Ref.Kind), true)
	s.logger.Info("transfer committed",
		zap.String("transfer_id", rec.ID),
		zap.String("ticket_id", in.Ref.ID),
		zap.String("ticket_kind", string(in.Ref.Kind)),
		zap.String("from_role", string(in.FromRole)),
		zap.String("to_role", string(in.ToRole)))

	s.publishTransferEvent(ctx, rec)

	return &TransferResult{
		TransferID: rec.ID,
		Ref:        in.Ref,
		FromRole:   in.FromRole,
		ToRole:     in.ToRole,
		ActorID:    in.ActorID,
		Reason:     in.Reason,
		Notes:      in.Notes,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// AssignInitial routes a freshly filed ticket to its first role. It is
// the same machinery as ExecuteTransfer with an empty from-role and an
// application-type inbox message.
func (s *TransferService) AssignInitial(ctx context.Context, ref domain.TicketRef, toRole domain.Role, actorID, reason string) (*TransferResult, error) {
	return s.ExecuteTransfer(ctx, TransferInput{
		Ref:     ref,
		ToRole:  toRole,
		ActorID: actorID,
		Reason:  reason,
	})
}

// RollbackTransfer reverses a recorded hand-off by executing a transfer
// with the roles swapped. The routing table still decides legality; a
// reverse direction the matrix forbids fails like any other transfer.
func (s *TransferService) RollbackTransfer(ctx context.Context, transferID, actorID, note string) (*TransferResult, error) {
	rec, err := s.stores.Transfers.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("transfer", map[string]any{"transfer_id": transferID})
		}
		return nil, apperrors.NewStorageFailure(err)
	}
	if rec.FromRole == "" {
		return nil, apperrors.NewValidationError("initial assignments cannot be rolled back", map[string]any{"transfer_id": transferID})
	}

	ref, err := domain.NewTicketRef(rec.TicketKind, rec.TicketID)
	if err != nil {
		return nil, apperrors.NewInvalidTicketKind(string(rec.TicketKind))
	}
	return s.ExecuteTransfer(ctx, TransferInput{
		Ref:      ref,
		FromRole: rec.ToRole,
		ToRole:   rec.FromRole,
		ActorID:  actorID,
		Reason:   fmt.Sprintf("rollback of transfer %s", rec.ID),
		Notes:    note,
	})
}

// GetTransferHistory returns the ticket's ledger, newest first.
func (s *TransferService) GetTransferHistory(ctx context.Context, ref domain.TicketRef) ([]domain.TransferRecord, error) {
	records, err := s.stores.Transfers.ListByTicket(ctx, ref)
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}
	return records, nil
}

// GetTransferOptions returns the legal targets for a role, for UIs to
// populate choices.
func (s *TransferService) GetTransferOptions(kind domain.TicketKind, role domain.Role) []domain.Role {
	return s.table.AllowedTargets(kind, role)
}

func (s *TransferService) publishTransferEvent(ctx context.Context, rec *domain.TransferRecord) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventTicketTransferred,
		TicketID:   rec.TicketID,
		TicketKind: rec.TicketKind,
		ActorID:    rec.ActorID,
		Timestamp:  time.Now(),
		Payload: events.TicketTransferredPayload{
			FromRole:   rec.FromRole,
			ToRole:     rec.ToRole,
			TransferID: rec.ID,
			Reason:     rec.Reason,
		},
	}
	if rec.FromRole == "" {
		event.Type = events.EventTicketAssigned
		event.Payload = events.TicketAssignedPayload{
			Role:       rec.ToRole,
			TransferID: rec.ID,
		}
	}
	_ = s.dispatcher.Publish(ctx, event)
}
