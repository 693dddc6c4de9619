package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, ticketID, id int64) (*domain.Attachment, error)
	ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.Attachment, error)
}

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, filename, file_path, file_type)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		attachment.TicketID,
		attachment.Filename,
		attachment.FilePath,
		attachment.FileType,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, ticketID, id int64) (*domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, filename, file_path, file_type, created_at
        FROM attachments WHERE id=$1 AND ticket_id=$2`

	var attachment domain.Attachment
	if err := conn(ctx, r.db).QueryRow(ctx, query, id, ticketID).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.Filename,
		&attachment.FilePath,
		&attachment.FileType,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListByTickets groups attachments by ticket, each group in insertion order.
func (r *attachmentRepository) ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.Attachment, error) {
	result := make(map[int64][]domain.Attachment, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}

	const query = `
        SELECT id, ticket_id, filename, file_path, file_type, created_at
        FROM attachments WHERE ticket_id = ANY($1) ORDER BY id`
	rows, err := conn(ctx, r.db).Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.Filename,
			&attachment.FilePath,
			&attachment.FileType,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[attachment.TicketID] = append(result[attachment.TicketID], attachment)
	}
	return result, rows.Err()
}
