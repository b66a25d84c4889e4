package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/events"
	"github.com/ispdesk/routing-service/internal/observability"
	"github.com/ispdesk/routing-service/internal/routing"
	apperrors "github.com/ispdesk/routing-service/pkg/util"
)

type transferFixture struct {
	state      *fakeState
	uow        *fakeUnitOfWork
	dispatcher events.Dispatcher
	svc        *TransferService
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	state := newFakeState()
	uow := &fakeUnitOfWork{state: state}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewTransferService(TransferDependencies{
		UnitOfWork: uow,
		Stores:     fakeStores(state),
		Table:      routing.NewTable(),
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	return &transferFixture{state: state, uow: uow, dispatcher: dispatcher, svc: svc}
}

func (f *transferFixture) seedConnectionTicket(t *testing.T, id string, owner domain.Role, status domain.TicketStatus) domain.TicketRef {
	t.Helper()
	ref := domain.TicketRef{Kind: domain.KindConnection, ID: id}
	f.state.putTicket(domain.Ticket{
		Ref:       ref,
		OwnerRole: owner,
		Status:    status,
		Priority:  domain.PriorityMedium,
	})
	return ref
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if derr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, derr.Code, derr)
	}
}

func TestExecuteTransferMovesOwnership(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "42", domain.RoleManager, domain.StatusAssigned)
	f.state.putInbox(domain.InboxMessage{
		ID:           "msg-1",
		TicketID:     ref.ID,
		TicketKind:   ref.Kind,
		AssignedRole: domain.RoleManager,
		MessageType:  domain.MessageTypeApplication,
		Priority:     domain.PriorityMedium,
	})

	result, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
		Reason:   "needs contract review",
	})
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if result.TransferID == "" {
		t.Fatal("expected transfer id")
	}

	ticket, ok := f.state.ticket(ref)
	if !ok {
		t.Fatal("ticket disappeared")
	}
	if ticket.OwnerRole != domain.RoleJuniorManager {
		t.Fatalf("owner = %s, want %s", ticket.OwnerRole, domain.RoleJuniorManager)
	}

	if n := f.state.transferCount(); n != 1 {
		t.Fatalf("ledger entries = %d, want 1", n)
	}
	rec, err := fakeStores(f.state).Transfers.GetByID(context.Background(), result.TransferID)
	if err != nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if rec.FromRole != domain.RoleManager || rec.ToRole != domain.RoleJuniorManager {
		t.Fatalf("ledger roles = %s → %s", rec.FromRole, rec.ToRole)
	}

	for _, msg := range f.state.inboxMessages(domain.RoleManager) {
		if !msg.IsRead {
			t.Fatalf("source inbox message %s still unread", msg.ID)
		}
	}
	target := f.state.inboxMessages(domain.RoleJuniorManager)
	if len(target) != 1 {
		t.Fatalf("target inbox messages = %d, want 1", len(target))
	}
	if target[0].IsRead {
		t.Fatal("target message should be unread")
	}
	if target[0].MessageType != domain.MessageTypeTransfer {
		t.Fatalf("target message type = %s", target[0].MessageType)
	}
	if target[0].Priority != domain.PriorityMedium {
		t.Fatalf("target message priority = %s", target[0].Priority)
	}
}

func TestExecuteTransferStaleOwner(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "7", domain.RoleController, domain.StatusInProgress)

	_, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
	})
	assertDomainCode(t, err, apperrors.CodeOwnershipMismatch)

	ticket, _ := f.state.ticket(ref)
	if ticket.OwnerRole != domain.RoleController {
		t.Fatalf("owner changed to %s", ticket.OwnerRole)
	}
	if n := f.state.transferCount(); n != 0 {
		t.Fatalf("ledger entries = %d, want 0", n)
	}
}

func TestExecuteTransferTerminalStatus(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "9", domain.RoleManager, domain.StatusCompleted)

	_, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
	})
	assertDomainCode(t, err, apperrors.CodeTicketClosed)
}

func TestExecuteTransferRollsBackOnLedgerFailure(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "11", domain.RoleManager, domain.StatusAssigned)
	f.uow.failTransferCreate = errors.New("ledger insert failed")

	_, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
	})
	assertDomainCode(t, err, apperrors.CodeStorageFailure)

	ticket, _ := f.state.ticket(ref)
	if ticket.OwnerRole != domain.RoleManager {
		t.Fatalf("owner = %s after rollback, want %s", ticket.OwnerRole, domain.RoleManager)
	}
	if n := f.state.transferCount(); n != 0 {
		t.Fatalf("ledger entries = %d, want 0", n)
	}
	if msgs := f.state.inboxMessages(domain.RoleJuniorManager); len(msgs) != 0 {
		t.Fatalf("target inbox messages = %d, want 0", len(msgs))
	}
}

func TestExecuteTransferConcurrentRace(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "13", domain.RoleManager, domain.StatusAssigned)

	targets := []domain.Role{domain.RoleJuniorManager, domain.RoleController}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target domain.Role) {
			defer wg.Done()
			_, errs[i] = f.svc.ExecuteTransfer(context.Background(), TransferInput{
				Ref:      ref,
				FromRole: domain.RoleManager,
				ToRole:   target,
				ActorID:  "staff-1",
			})
		}(i, target)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var derr *apperrors.DomainError
		if errors.As(err, &derr) && derr.Code == apperrors.CodeOwnershipMismatch {
			conflicts++
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("successes=%d conflicts=%d, want exactly one of each (errs=%v)", successes, conflicts, errs)
	}
	if n := f.state.transferCount(); n != 1 {
		t.Fatalf("ledger entries = %d, want 1", n)
	}
}

func TestValidateTransferOrdering(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "21", domain.RoleManager, domain.StatusAssigned)

	cases := []struct {
		name string
		in   TransferInput
		code string
	}{
		{
			name: "unknown kind reported before unknown roles",
			in: TransferInput{
				Ref:      domain.TicketRef{Kind: "emergency", ID: "21"},
				FromRole: "dispatcher",
				ToRole:   "dispatcher",
			},
			code: apperrors.CodeInvalidTicketKind,
		},
		{
			name: "unknown from role reported before no-op",
			in: TransferInput{
				Ref:      ref,
				FromRole: "dispatcher",
				ToRole:   "dispatcher",
			},
			code: apperrors.CodeInvalidRole,
		},
		{
			name: "unknown to role",
			in: TransferInput{
				Ref:      ref,
				FromRole: domain.RoleManager,
				ToRole:   "dispatcher",
			},
			code: apperrors.CodeInvalidRole,
		},
		{
			name: "no-op reported before matrix check",
			in: TransferInput{
				Ref:      ref,
				FromRole: domain.RoleWarehouse,
				ToRole:   domain.RoleWarehouse,
			},
			code: apperrors.CodeNoOpTransfer,
		},
		{
			name: "illegal transition reported before existence check",
			in: TransferInput{
				Ref:      domain.TicketRef{Kind: domain.KindConnection, ID: "404"},
				FromRole: domain.RoleManager,
				ToRole:   domain.RoleWarehouse,
			},
			code: apperrors.CodeTransitionNotAllowed,
		},
		{
			name: "missing ticket",
			in: TransferInput{
				Ref:      domain.TicketRef{Kind: domain.KindConnection, ID: "404"},
				FromRole: domain.RoleManager,
				ToRole:   domain.RoleJuniorManager,
			},
			code: apperrors.CodeTicketNotFound,
		},
		{
			name: "ownership mismatch",
			in: TransferInput{
				Ref:      ref,
				FromRole: domain.RoleController,
				ToRole:   domain.RoleTechnician,
			},
			code: apperrors.CodeOwnershipMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vr := f.svc.ValidateTransfer(context.Background(), tc.in)
			if vr.OK {
				t.Fatal("expected validation failure")
			}
			if vr.Reason.Code != tc.code {
				t.Fatalf("code = %s, want %s", vr.Reason.Code, tc.code)
			}
		})
	}

	if n := f.state.transferCount(); n != 0 {
		t.Fatalf("validation mutated state: %d ledger entries", n)
	}
}

func TestAssignInitial(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "31", "", domain.StatusNew)

	result, err := f.svc.AssignInitial(context.Background(), ref, domain.RoleManager, "bot", "new application")
	if err != nil {
		t.Fatalf("AssignInitial: %v", err)
	}
	if result.FromRole != "" {
		t.Fatalf("initial assignment has from role %s", result.FromRole)
	}

	ticket, _ := f.state.ticket(ref)
	if ticket.OwnerRole != domain.RoleManager {
		t.Fatalf("owner = %s, want %s", ticket.OwnerRole, domain.RoleManager)
	}

	msgs := f.state.inboxMessages(domain.RoleManager)
	if len(msgs) != 1 {
		t.Fatalf("inbox messages = %d, want 1", len(msgs))
	}
	if msgs[0].MessageType != domain.MessageTypeApplication {
		t.Fatalf("message type = %s, want %s", msgs[0].MessageType, domain.MessageTypeApplication)
	}
}

func TestAssignInitialRejectsNonEntryRole(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "33", "", domain.StatusNew)

	_, err := f.svc.AssignInitial(context.Background(), ref, domain.RoleTechnician, "bot", "new application")
	assertDomainCode(t, err, apperrors.CodeTransitionNotAllowed)
}

func TestRollbackTransfer(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "51", domain.RoleManager, domain.StatusAssigned)

	forward, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
		Reason:   "contract review",
	})
	if err != nil {
		t.Fatalf("forward transfer: %v", err)
	}

	back, err := f.svc.RollbackTransfer(context.Background(), forward.TransferID, "staff-2", "sent by mistake")
	if err != nil {
		t.Fatalf("RollbackTransfer: %v", err)
	}
	if back.FromRole != domain.RoleJuniorManager || back.ToRole != domain.RoleManager {
		t.Fatalf("rollback roles = %s → %s", back.FromRole, back.ToRole)
	}

	ticket, _ := f.state.ticket(ref)
	if ticket.OwnerRole != domain.RoleManager {
		t.Fatalf("owner = %s after rollback, want %s", ticket.OwnerRole, domain.RoleManager)
	}

	history, err := f.svc.GetTransferHistory(context.Background(), ref)
	if err != nil {
		t.Fatalf("GetTransferHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[0].ID != back.TransferID {
		t.Fatal("history not newest first")
	}
	if history[0].Reason != "rollback of transfer "+forward.TransferID {
		t.Fatalf("rollback reason = %q", history[0].Reason)
	}
}

func TestRollbackRejectsInitialAssignment(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "61", "", domain.StatusNew)

	initial, err := f.svc.AssignInitial(context.Background(), ref, domain.RoleManager, "bot", "new application")
	if err != nil {
		t.Fatalf("AssignInitial: %v", err)
	}

	_, err = f.svc.RollbackTransfer(context.Background(), initial.TransferID, "staff-1", "")
	assertDomainCode(t, err, apperrors.CodeValidationFailed)
}

func TestRollbackUnknownTransfer(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.svc.RollbackTransfer(context.Background(), "no-such-id", "staff-1", "")
	assertDomainCode(t, err, apperrors.CodeNotFound)
}

func TestTransferEventsPublishedAfterCommit(t *testing.T) {
	f := newTransferFixture(t)
	ref := f.seedConnectionTicket(t, "71", domain.RoleManager, domain.StatusAssigned)

	var got []events.Event
	f.dispatcher.Subscribe(events.EventTicketTransferred, func(ctx context.Context, event events.Event) error {
		got = append(got, event)
		return nil
	})

	// Failing transfer must not publish.
	_, _ = f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleController,
		ToRole:   domain.RoleTechnician,
		ActorID:  "staff-1",
	})
	if len(got) != 0 {
		t.Fatalf("events after failed transfer = %d", len(got))
	}

	result, err := f.svc.ExecuteTransfer(context.Background(), TransferInput{
		Ref:      ref,
		FromRole: domain.RoleManager,
		ToRole:   domain.RoleJuniorManager,
		ActorID:  "staff-1",
	})
	if err != nil {
		t.Fatalf("ExecuteTransfer: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	payload, ok := got[0].Payload.(events.TicketTransferredPayload)
	if !ok {
		t.Fatalf("payload type %T", got[0].Payload)
	}
	if payload.TransferID != result.TransferID {
		t.Fatal("event carries wrong transfer id")
	}
}

func TestGetTransferOptions(t *testing.T) {
	f := newTransferFixture(t)

	targets := f.svc.GetTransferOptions(domain.KindService, domain.RoleManager)
	want := map[domain.Role]bool{
		domain.RoleTechnician: true,
		domain.RoleController: true,
		domain.RoleCallCenter: true,
	}
	if len(targets) != len(want) {
		t.Fatalf("targets = %v", targets)
	}
	for _, role := range targets {
		if !want[role] {
			t.Fatalf("unexpected target %s", role)
		}
	}
}
