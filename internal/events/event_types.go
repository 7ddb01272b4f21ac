package events

import (
	"time"

	"github.com/spec-kit/support-tickets/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventResponseCreated     EventType = "response_created"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketUpdatedPayload lists the fields an edit touched.
type TicketUpdatedPayload struct {
	Fields  []string `json:"fields"`
	Partial bool     `json:"partial"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ResponseCreatedPayload payload.
type ResponseCreatedPayload struct {
	ResponseID    string `json:"response_id"`
	AuthorIsAdmin bool   `json:"author_is_admin"`
	BodyPreview   string `json:"body_preview"`
}
