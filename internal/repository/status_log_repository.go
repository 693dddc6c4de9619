package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// StatusLogRepository stores audit entries. Entries are never updated.
type StatusLogRepository interface {
	Create(ctx context.Context, entry *domain.StatusLogEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error)
}

type statusLogRepository struct {
	db DBTX
}

// NewStatusLogRepository builds repository.
func NewStatusLogRepository(db DBTX) StatusLogRepository {
	return &statusLogRepository{db: db}
}

func (r *statusLogRepository) Create(ctx context.Context, entry *domain.StatusLogEntry) error {
	const query = `
        INSERT INTO ticket_status_logs (ticket_id, old_status, new_status, changed_by_admin_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, timestamp`

	var oldStatus *string
	if entry.OldStatus != nil {
		s := string(*entry.OldStatus)
		oldStatus = &s
	}
	return conn(ctx, r.db).QueryRow(ctx, query,
		entry.TicketID,
		oldStatus,
		string(entry.NewStatus),
		entry.ChangedByAdminID,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by_admin_id, timestamp
        FROM ticket_status_logs WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusLogEntry{}
	for rows.Next() {
		var (
			entry     domain.StatusLogEntry
			oldStatus *string
			newStatus string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&oldStatus,
			&newStatus,
			&entry.ChangedByAdminID,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		if oldStatus != nil {
			s := domain.TicketStatus(*oldStatus)
			entry.OldStatus = &s
		}
		entry.NewStatus = domain.TicketStatus(newStatus)
		result = append(result, entry)
	}
	return result, rows.Err()
}
