package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether userID created the ticket.
func (t *Ticket) OwnedBy(userID string) bool {
	return t.OwnerID == userID
}

// TicketPatch carries the fields of an edit request. Nil fields are left
// untouched. Status is only ever set when a caller tries to change it through
// the edit path, which is always rejected.
type TicketPatch struct {
	Title       *string
	Description *string
	Priority    *TicketPriority
	Status      *TicketStatus
}

// Complete reports whether every editable field is present, as a full
// replacement requires.
func (p TicketPatch) Complete() bool {
	return p.Title != nil && p.Description != nil && p.Priority != nil
}

// Apply copies the present editable fields onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}
