package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketHoldReasonSet EventType = "ticket_hold_reason_set"
)

// Actor identifies who caused an event.
type Actor struct {
	Kind domain.PrincipalKind `json:"kind"`
	ID   int64                `json:"id"`
}

// ActorOf derives the actor from a principal.
func ActorOf(p *domain.Principal) Actor {
	return Actor{Kind: p.Kind, ID: p.ID()}
}

// Event represents a domain event emitted after a commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID int64, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	UserID      int64 `json:"user_id"`
	Attachments int   `json:"attachments"`
}

// TicketStatusChangedPayload payload. Implicit marks the read-triggered move.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Implicit  bool                `json:"implicit,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAdminID *int64 `json:"previous_admin_id,omitempty"`
	AdminID         *int64 `json:"admin_id,omitempty"`
}

// TicketHoldReasonSetPayload payload.
type TicketHoldReasonSetPayload struct {
	Reason string `json:"reason"`
}
