package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusOnHold     TicketStatus = "On Hold"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusResolved,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. UserID and Description never
// change after creation.
type Ticket struct {
	ID              int64
	UserID          int64
	Description     string
	Status          TicketStatus
	AssignedAdminID *int64
	HoldReason      *string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Attachment is a stored file belonging to a ticket. Immutable.
type Attachment struct {
	ID        int64
	TicketID  int64
	Filename  string
	FilePath  string
	FileType  *string
	CreatedAt time.Time
}

// StatusLogEntry is an append-only audit record of one status transition.
type StatusLogEntry struct {
	ID               int64
	TicketID         int64
	OldStatus        *TicketStatus
	NewStatus        TicketStatus
	ChangedByAdminID *int64
	Timestamp        time.Time
}

// TicketDetail is a ticket with its owned collections.
type TicketDetail struct {
	Ticket
	Attachments []Attachment
}

// TicketStats is the dashboard rollup.
type TicketStats struct {
	Total      int64
	Pending    int64
	InProgress int64
	OnHold     int64
	Resolved   int64
	Workload   []AdminWorkload
}

// AdminWorkload counts tickets per assignee. A nil AdminID is the unassigned group.
type AdminWorkload struct {
	AdminID *int64
	Count   int64
}
