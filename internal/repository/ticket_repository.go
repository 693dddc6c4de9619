package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters. A nil UserID lists every ticket.
type TicketFilter struct {
	UserID *int64
	Limit  int
	Offset int
}

// TicketRepository encapsulates ticket persistence. Status, assignment and
// hold reason are written only through UpdateWorkflow and TransitionStatus.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateWorkflow(ctx context.Context, ticket *domain.Ticket) error
	// TransitionStatus moves the ticket to "to" only if it is still in "from".
	// It reports whether this call performed the move.
	TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, user_id, description, status, assigned_admin_id, hold_reason, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, description, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		ticket.UserID,
		ticket.Description,
		string(ticket.Status),
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 100, 500)

	var (
		rows pgx.Rows
		err  error
	)
	if filter.UserID != nil {
		const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`
		rows, err = conn(ctx, r.db).Query(ctx, query, *filter.UserID, limit, offset)
	} else {
		const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY id DESC LIMIT $1 OFFSET $2`
		rows, err = conn(ctx, r.db).Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateWorkflow(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_admin_id=$2, hold_reason=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		string(ticket.Status),
		ticket.AssignedAdminID,
		ticket.HoldReason,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrInvalidReference
	}
	return err
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error) {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`

	cmd, err := conn(ctx, r.db).Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		status string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Description,
		&status,
		&ticket.AssignedAdminID,
		&ticket.HoldReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}
