package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx operations repositories need. It is
// satisfied by *pgxpool.Pool and by pgx.Tx, so the same repository code
// runs inside and outside transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the repositories the routing core works with.
type Stores struct {
	Tickets   TicketRepository
	Inbox     InboxRepository
	Transfers TransferRepository
	Staff     StaffRepository
}

// NewStores builds a repository set bound to the given handle.
func NewStores(db DB) Stores {
	return Stores{
		Tickets:   NewTicketRepository(db),
		Inbox:     NewInboxRepository(db),
		Transfers: NewTransferRepository(db),
		Staff:     NewStaffRepository(db),
	}
}
