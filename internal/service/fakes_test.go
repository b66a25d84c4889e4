package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/repository"
)

// fakeState is an in-memory stand-in for the database. Transactions
// clone the state, run against the clone and swap it back on commit, so
// a failing callback leaves no trace.
type fakeState struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	inbox     map[string]domain.InboxMessage
	transfers map[string]domain.TransferRecord
	seq       int64
	order     map[string]int64
}

func newFakeState() *fakeState {
	return &fakeState{
		tickets:   make(map[string]domain.Ticket),
		inbox:     make(map[string]domain.InboxMessage),
		transfers: make(map[string]domain.TransferRecord),
		order:     make(map[string]int64),
	}
}

func ticketKey(ref domain.TicketRef) string {
	return string(ref.Kind) + "/" + ref.ID
}

func (s *fakeState) cloneLocked() *fakeState {
	clone := newFakeState()
	for k, v := range s.tickets {
		clone.tickets[k] = v
	}
	for k, v := range s.inbox {
		clone.inbox[k] = v
	}
	for k, v := range s.transfers {
		clone.transfers[k] = v
	}
	for k, v := range s.order {
		clone.order[k] = v
	}
	clone.seq = s.seq
	return clone
}

func (s *fakeState) commitLocked(clone *fakeState) {
	s.tickets = clone.tickets
	s.inbox = clone.inbox
	s.transfers = clone.transfers
	s.order = clone.order
	s.seq = clone.seq
}

func (s *fakeState) putTicket(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticketKey(ticket.Ref)] = ticket
}

func (s *fakeState) putInbox(msg domain.InboxMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt
	s.inbox[msg.ID] = msg
}

func (s *fakeState) ticket(ref domain.TicketRef) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketKey(ref)]
	return ticket, ok
}

func (s *fakeState) inboxMessages(role domain.Role) []domain.InboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.InboxMessage
	for _, msg := range s.inbox {
		if msg.AssignedRole == role {
			result = append(result, msg)
		}
	}
	return result
}

func (s *fakeState) transferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

type fakeTicketRepo struct {
	state *fakeState
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.state.tickets[ticketKey(ticket.Ref)] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByRef(ctx context.Context, ref domain.TicketRef) (*domain.Ticket, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	ticket, ok := r.state.tickets[ticketKey(ref)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ReassignOwner(ctx context.Context, ref domain.TicketRef, from, to domain.Role) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	ticket, ok := r.state.tickets[ticketKey(ref)]
	if !ok || ticket.OwnerRole != from {
		return false, nil
	}
	ticket.OwnerRole = to
	ticket.UpdatedAt = time.Now()
	r.state.tickets[ticketKey(ref)] = ticket
	return true, nil
}

type fakeInboxRepo struct {
	state *fakeState
}

func (r *fakeInboxRepo) Create(ctx context.Context, msg *domain.InboxMessage) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt
	r.state.inbox[msg.ID] = *msg
	return nil
}

func (r *fakeInboxRepo) GetByID(ctx context.Context, id string) (*domain.InboxMessage, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	msg, ok := r.state.inbox[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := msg
	return &copied, nil
}

func (r *fakeInboxRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	msg, ok := r.state.inbox[id]
	if !ok || msg.IsRead {
		return false, nil
	}
	msg.IsRead = true
	msg.UpdatedAt = time.Now()
	r.state.inbox[id] = msg
	return true, nil
}

func (r *fakeInboxRepo) RetireUnread(ctx context.Context, ticketID string, kind domain.TicketKind, role domain.Role) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var retired int64
	for id, msg := range r.state.inbox {
		if msg.TicketID == ticketID && msg.TicketKind == kind && msg.AssignedRole == role && !msg.IsRead {
			msg.IsRead = true
			msg.UpdatedAt = time.Now()
			r.state.inbox[id] = msg
			retired++
		}
	}
	return retired, nil
}

func (r *fakeInboxRepo) matchesLocked(msg domain.InboxMessage, filter repository.InboxFilter) bool {
	if msg.AssignedRole != filter.Role {
		return false
	}
	if filter.Kind != nil && msg.TicketKind != *filter.Kind {
		return false
	}
	if filter.Priority != nil && msg.Priority != *filter.Priority {
		return false
	}
	if !filter.IncludeRead && msg.IsRead {
		return false
	}
	return true
}

func (r *fakeInboxRepo) List(ctx context.Context, filter repository.InboxFilter) ([]repository.InboxEntry, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var matched []domain.InboxMessage
	for _, msg := range r.state.inbox {
		if r.matchesLocked(msg, filter) {
			matched = append(matched, msg)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ri, rj := matched[i].Priority.Rank(), matched[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	var result []repository.InboxEntry
	for _, msg := range matched[offset:end] {
		entry := repository.InboxEntry{Message: msg}
		ref := domain.TicketRef{Kind: msg.TicketKind, ID: msg.TicketID}
		if ticket, ok := r.state.tickets[ticketKey(ref)]; ok {
			entry.TicketDescription = ticket.Description
			entry.TicketStatus = ticket.Status
			entry.TicketContact = ticket.ContactInfo
		}
		result = append(result, entry)
	}
	return result, nil
}

func (r *fakeInboxRepo) Count(ctx context.Context, filter repository.InboxFilter) (int, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	count := 0
	for _, msg := range r.state.inbox {
		if r.matchesLocked(msg, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeInboxRepo) CountUnread(ctx context.Context, role domain.Role) (int, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	count := 0
	for _, msg := range r.state.inbox {
		if msg.AssignedRole == role && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeInboxRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time, keepTypes []domain.InboxMessageType) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	keep := make(map[domain.InboxMessageType]struct{}, len(keepTypes))
	for _, t := range keepTypes {
		keep[t] = struct{}{}
	}
	var deleted int64
	for id, msg := range r.state.inbox {
		if !msg.IsRead || !msg.CreatedAt.Before(cutoff) {
			continue
		}
		if _, kept := keep[msg.MessageType]; kept {
			continue
		}
		delete(r.state.inbox, id)
		deleted++
	}
	return deleted, nil
}

type fakeTransferRepo struct {
	state     *fakeState
	createErr error
}

func (r *fakeTransferRepo) Create(ctx context.Context, rec *domain.TransferRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.state.seq++
	r.state.order[rec.ID] = r.state.seq
	r.state.transfers[rec.ID] = *rec
	return nil
}

func (r *fakeTransferRepo) GetByID(ctx context.Context, id string) (*domain.TransferRecord, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	rec, ok := r.state.transfers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := rec
	return &copied, nil
}

func (r *fakeTransferRepo) ListByTicket(ctx context.Context, ref domain.TicketRef) ([]domain.TransferRecord, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var result []domain.TransferRecord
	for _, rec := range r.state.transfers {
		if rec.TicketID == ref.ID && rec.TicketKind == ref.Kind {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return r.state.order[result[i].ID] > r.state.order[result[j].ID]
	})
	return result, nil
}

func fakeStores(state *fakeState) repository.Stores {
	return repository.Stores{
		Tickets:   &fakeTicketRepo{state: state},
		Inbox:     &fakeInboxRepo{state: state},
		Transfers: &fakeTransferRepo{state: state},
	}
}

// fakeUnitOfWork serializes callbacks on the state mutex and commits by
// swapping in the mutated clone. Set failTransferCreate to make the
// ledger insert fail inside the transaction.
type fakeUnitOfWork struct {
	state              *fakeState
	failTransferCreate error
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	u.state.mu.Lock()
	defer u.state.mu.Unlock()

	clone := u.state.cloneLocked()
	stores := repository.Stores{
		Tickets:   &fakeTicketRepo{state: clone},
		Inbox:     &fakeInboxRepo{state: clone},
		Transfers: &fakeTransferRepo{state: clone, createErr: u.failTransferCreate},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	u.state.commitLocked(clone)
	return nil
}
