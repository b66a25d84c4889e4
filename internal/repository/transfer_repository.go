package repository

import (
	"context"

	"github.com/ispdesk/routing-service/internal/domain"
)

// TransferRepository stores the append-only hand-off ledger. Records
// are never updated or deleted.
type TransferRepository interface {
	Create(ctx context.Context, rec *domain.TransferRecord) error
	GetByID(ctx context.Context, id string) (*domain.TransferRecord, error)
	ListByTicket(ctx context.Context, ref domain.TicketRef) ([]domain.TransferRecord, error)
}

type transferRepository struct {
	db DB
}

// NewTransferRepository builds repository.
func NewTransferRepository(db DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, rec *domain.TransferRecord) error {
	const query = `
        INSERT INTO transfer_records (id, ticket_id, ticket_kind, from_role, to_role, actor_id, reason, notes)
        VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		rec.ID,
		rec.TicketID,
		rec.TicketKind,
		string(rec.FromRole),
		rec.ToRole,
		rec.ActorID,
		rec.Reason,
		rec.Notes,
	).Scan(&rec.CreatedAt)
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*domain.TransferRecord, error) {
	const query = `
        SELECT id, ticket_id, ticket_kind, COALESCE(from_role,''), to_role, actor_id, reason, notes, created_at
        FROM transfer_records WHERE id=$1`
	var rec domain.TransferRecord
	var from string
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.TicketID,
		&rec.TicketKind,
		&from,
		&rec.ToRole,
		&rec.ActorID,
		&rec.Reason,
		&rec.Notes,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.FromRole = domain.Role(from)
	return &rec, nil
}

func (r *transferRepository) ListByTicket(ctx context.Context, ref domain.TicketRef) ([]domain.TransferRecord, error) {
	const query = `
        SELECT id, ticket_id, ticket_kind, COALESCE(from_role,''), to_role, actor_id, reason, notes, created_at
        FROM transfer_records
        WHERE ticket_id=$1 AND ticket_kind=$2
        ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ref.ID, ref.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransferRecord
	for rows.Next() {
		var rec domain.TransferRecord
		var from string
		if err := rows.Scan(
			&rec.ID,
			&rec.TicketID,
			&rec.TicketKind,
			&from,
			&rec.ToRole,
			&rec.ActorID,
			&rec.Reason,
			&rec.Notes,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.FromRole = domain.Role(from)
		result = append(result, rec)
	}
	return result, rows.Err()
}
