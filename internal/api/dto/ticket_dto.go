package dto

import (
	"time"

	"github.com/spec-kit/support-tickets/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateTicketRequest is shared by PUT and PATCH. Status is accepted only so
// the edit rules can reject it.
type UpdateTicketRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status"`
}

// Patch converts the request into a domain patch.
func (r UpdateTicketRequest) Patch() domain.TicketPatch {
	patch := domain.TicketPatch{Title: r.Title, Description: r.Description}
	if r.Priority != nil {
		p := domain.TicketPriority(*r.Priority)
		patch.Priority = &p
	}
	if r.Status != nil {
		s := domain.TicketStatus(*r.Status)
		patch.Status = &s
	}
	return patch
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress closed"`
}

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Message string `json:"message" validate:"required"`
}

// TicketListQuery captures query filters for ticket listing.
type TicketListQuery struct {
	Status   string `query:"status" validate:"omitempty,oneof=open in_progress closed"`
	Priority string `query:"priority" validate:"omitempty,oneof=low medium high"`
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=100"`
}

// TicketResponse is the ticket representation. Phase and Responses are only
// filled on the detail endpoint.
type TicketResponse struct {
	ID          string                `json:"id"`
	OwnerID     string                `json:"owner_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Phase       string                `json:"phase,omitempty"`
	Responses   []ResponseResponse    `json:"responses,omitempty"`
}

// ResponseResponse represents a thread message.
type ResponseResponse struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticket_id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	AuthorIsAdmin  bool      `json:"author_is_admin"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// PageMeta describes a page of results.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewResponseResponse maps a response.
func NewResponseResponse(r *domain.Response) ResponseResponse {
	return ResponseResponse{
		ID:             r.ID,
		TicketID:       r.TicketID,
		AuthorID:       r.AuthorID,
		AuthorUsername: r.AuthorUsername,
		AuthorIsAdmin:  r.AuthorIsAdmin,
		Message:        r.Message,
		CreatedAt:      r.CreatedAt,
	}
}

// NewResponseList maps a thread, never returning nil.
func NewResponseList(responses []domain.Response) []ResponseResponse {
	out := make([]ResponseResponse, 0, len(responses))
	for i := range responses {
		out = append(out, NewResponseResponse(&responses[i]))
	}
	return out
}
