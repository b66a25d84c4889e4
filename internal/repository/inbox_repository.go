package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ispdesk/routing-service/internal/domain"
)

// InboxFilter captures inbox listing parameters for one role.
type InboxFilter struct {
	Role        domain.Role
	Kind        *domain.TicketKind
	Priority    *domain.TicketPriority
	IncludeRead bool
	Limit       int
	Offset      int
}

// InboxEntry is an inbox message joined with a projection of the
// underlying ticket.
type InboxEntry struct {
	Message           domain.InboxMessage
	TicketDescription string
	TicketStatus      domain.TicketStatus
	TicketContact     string
}

// InboxRepository manages per-role notification queues.
type InboxRepository interface {
	Create(ctx context.Context, msg *domain.InboxMessage) error
	GetByID(ctx context.Context, id string) (*domain.InboxMessage, error)
	// MarkRead flips the unread flag; returns false when the message
	// was already read.
	MarkRead(ctx context.Context, id string) (bool, error)
	// RetireUnread marks read every unread message for the ticket in
	// the given role's inbox.
	RetireUnread(ctx context.Context, ticketID string, kind domain.TicketKind, role domain.Role) (int64, error)
	List(ctx context.Context, filter InboxFilter) ([]InboxEntry, error)
	Count(ctx context.Context, filter InboxFilter) (int, error)
	CountUnread(ctx context.Context, role domain.Role) (int, error)
	// DeleteReadBefore removes read messages created before the cutoff,
	// skipping the listed message types.
	DeleteReadBefore(ctx context.Context, cutoff time.Time, keepTypes []domain.InboxMessageType) (int64, error)
}

type inboxRepository struct {
	db DB
}

// NewInboxRepository builds repository.
func NewInboxRepository(db DB) InboxRepository {
	return &inboxRepository{db: db}
}

func (r *inboxRepository) Create(ctx context.Context, msg *domain.InboxMessage) error {
	const query = `
        INSERT INTO inbox_messages (id, ticket_id, ticket_kind, assigned_role, message_type, title, priority, is_read)
        VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		msg.ID,
		msg.TicketID,
		msg.TicketKind,
		msg.AssignedRole,
		msg.MessageType,
		msg.Title,
		msg.Priority,
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
}

func (r *inboxRepository) GetByID(ctx context.Context, id string) (*domain.InboxMessage, error) {
	const query = `
        SELECT id, ticket_id, ticket_kind, assigned_role, message_type, title, priority, is_read, created_at, updated_at
        FROM inbox_messages WHERE id=$1`
	var msg domain.InboxMessage
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.TicketKind,
		&msg.AssignedRole,
		&msg.MessageType,
		&msg.Title,
		&msg.Priority,
		&msg.IsRead,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *inboxRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE inbox_messages SET is_read=TRUE, updated_at=NOW()
        WHERE id=$1 AND is_read=FALSE`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *inboxRepository) RetireUnread(ctx context.Context, ticketID string, kind domain.TicketKind, role domain.Role) (int64, error) {
	const query = `
        UPDATE inbox_messages SET is_read=TRUE, updated_at=NOW()
        WHERE ticket_id=$1 AND ticket_kind=$2 AND assigned_role=$3 AND is_read=FALSE`
	cmd, err := r.db.Exec(ctx, query, ticketID, kind, role)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const priorityRankExpr = `CASE m.priority
        WHEN 'urgent' THEN 4
        WHEN 'high' THEN 3
        WHEN 'medium' THEN 2
        WHEN 'low' THEN 1
        ELSE 0 END`

func inboxClauses(filter InboxFilter) (string, []any) {
	clauses := []string{"m.assigned_role=$1"}
	args := []any{filter.Role}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("m.ticket_kind=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("m.priority=$%d", len(args)))
	}
	if !filter.IncludeRead {
		clauses = append(clauses, "m.is_read=FALSE")
	}
	return strings.Join(clauses, " AND "), args
}

func (r *inboxRepository) List(ctx context.Context, filter InboxFilter) ([]InboxEntry, error) {
	where, args := inboxClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT m.id, m.ticket_id, m.ticket_kind, m.assigned_role, m.message_type, m.title, m.priority, m.is_read,
               m.created_at, m.updated_at,
               COALESCE(ct.description, st.description, '') AS description,
               COALESCE(ct.status, st.status, '') AS status,
               COALESCE(ct.contact_info, st.contact_info, '') AS contact_info
        FROM inbox_messages m
        LEFT JOIN connection_tickets ct ON m.ticket_kind='connection' AND ct.ticket_id=m.ticket_id
        LEFT JOIN service_tickets st ON m.ticket_kind='service' AND st.ticket_id=m.ticket_id
        WHERE %s
        ORDER BY %s DESC, m.created_at DESC
        LIMIT %d OFFSET %d`, where, priorityRankExpr, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InboxEntry
	for rows.Next() {
		var entry InboxEntry
		if err := rows.Scan(
			&entry.Message.ID,
			&entry.Message.TicketID,
			&entry.Message.TicketKind,
			&entry.Message.AssignedRole,
			&entry.Message.MessageType,
			&entry.Message.Title,
			&entry.Message.Priority,
			&entry.Message.IsRead,
			&entry.Message.CreatedAt,
			&entry.Message.UpdatedAt,
			&entry.TicketDescription,
			&entry.TicketStatus,
			&entry.TicketContact,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *inboxRepository) Count(ctx context.Context, filter InboxFilter) (int, error) {
	where, args := inboxClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM inbox_messages m WHERE %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *inboxRepository) CountUnread(ctx context.Context, role domain.Role) (int, error) {
	const query = `SELECT COUNT(*) FROM inbox_messages m WHERE m.assigned_role=$1 AND m.is_read=FALSE`
	var count int
	if err := r.db.QueryRow(ctx, query, role).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *inboxRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time, keepTypes []domain.InboxMessageType) (int64, error) {
	clauses := []string{"is_read=TRUE", "created_at < $1"}
	args := []any{cutoff}
	for _, t := range keepTypes {
		args = append(args, t)
		clauses = append(clauses, fmt.Sprintf("message_type <> $%d", len(args)))
	}
	query := fmt.Sprintf(`DELETE FROM inbox_messages WHERE %s`, strings.Join(clauses, " AND "))

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
