package dto

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest is the JSON form of ticket creation. Multipart
// requests carry the same description field plus files.
type CreateTicketRequest struct {
	Description string `json:"description" form:"description"`
}

func (r CreateTicketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Description, validation.Required, validation.Length(1, 10000)),
	)
}

// UpdateTicketRequest payload. Absent fields are left unchanged.
type UpdateTicketRequest struct {
	Status          *domain.TicketStatus `json:"status"`
	HoldReason      *string              `json:"hold_reason"`
	AssignedAdminID *int64               `json:"assigned_admin_id"`
}

func (r UpdateTicketRequest) Validate() error {
	statuses := make([]interface{}, 0, len(domain.TicketStatuses))
	for _, s := range domain.TicketStatuses {
		statuses = append(statuses, s)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.NilOrNotEmpty, validation.In(statuses...)),
		validation.Field(&r.HoldReason, validation.Length(0, 1000)),
		validation.Field(&r.AssignedAdminID, validation.Min(int64(1))),
	)
}

// TicketResponse is a ticket with its attachments.
type TicketResponse struct {
	ID              int64                `json:"id"`
	UserID          int64                `json:"user_id"`
	Description     string               `json:"description"`
	Status          domain.TicketStatus  `json:"status"`
	AssignedAdminID *int64               `json:"assigned_admin_id"`
	HoldReason      *string              `json:"hold_reason"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       *time.Time           `json:"updated_at"`
	Attachments     []AttachmentResponse `json:"attachments"`
}

// AttachmentResponse metadata. The storage path stays server side; clients
// use URL.
type AttachmentResponse struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	FileType  *string   `json:"file_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketResponse maps a ticket detail.
func NewTicketResponse(t *domain.TicketDetail) TicketResponse {
	attachments := make([]AttachmentResponse, 0, len(t.Attachments))
	for _, a := range t.Attachments {
		attachments = append(attachments, AttachmentResponse{
			ID:        a.ID,
			Filename:  a.Filename,
			FileType:  a.FileType,
			URL:       fmt.Sprintf("/tickets/%d/attachments/%d", a.TicketID, a.ID),
			CreatedAt: a.CreatedAt,
		})
	}
	return TicketResponse{
		ID:              t.ID,
		UserID:          t.UserID,
		Description:     t.Description,
		Status:          t.Status,
		AssignedAdminID: t.AssignedAdminID,
		HoldReason:      t.HoldReason,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Attachments:     attachments,
	}
}

// StatusLogResponse is one audit entry.
type StatusLogResponse struct {
	ID               int64                `json:"id"`
	TicketID         int64                `json:"ticket_id"`
	OldStatus        *domain.TicketStatus `json:"old_status"`
	NewStatus        domain.TicketStatus  `json:"new_status"`
	ChangedByAdminID *int64               `json:"changed_by_admin_id"`
	Timestamp        time.Time            `json:"timestamp"`
}

// NewStatusLogResponses maps a history.
func NewStatusLogResponses(entries []domain.StatusLogEntry) []StatusLogResponse {
	resp := make([]StatusLogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, StatusLogResponse{
			ID:               e.ID,
			TicketID:         e.TicketID,
			OldStatus:        e.OldStatus,
			NewStatus:        e.NewStatus,
			ChangedByAdminID: e.ChangedByAdminID,
			Timestamp:        e.Timestamp,
		})
	}
	return resp
}
