// Package access decides whether an actor may act on a ticket. It performs no
// I/O and never mutates its inputs; callers apply the effect after an Allow.
package access

import "github.com/spec-kit/support-tickets/internal/domain"

// Action identifies the operation being authorized.
type Action string

const (
	ActionCreateResponse Action = "create_response"
	ActionEditTicket     Action = "edit_ticket"
	ActionChangeStatus   Action = "change_status"
	ActionDeleteTicket   Action = "delete_ticket"
	ActionListResponses  Action = "list_responses"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  domain.DenyReason
}

// Allow grants the action.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny rejects the action for reason.
func Deny(reason domain.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an Allow and a *domain.PermissionDeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &domain.PermissionDeniedError{Reason: d.Reason}
}

// Decide evaluates action for actor against ticket and its current responses.
// patch is only consulted for ActionEditTicket and may be nil elsewhere.
//
// Checks run in a fixed order: role, then ownership, then the response
// history, then the payload shape.
func Decide(actor *domain.User, ticket *domain.Ticket, responses []domain.Response, action Action, patch *domain.TicketPatch) Decision {
	switch action {
	case ActionCreateResponse:
		return canRespond(actor, responses)
	case ActionEditTicket:
		return canEdit(actor, ticket, responses, patch)
	case ActionChangeStatus, ActionListResponses:
		return requireAdmin(actor)
	case ActionDeleteTicket:
		return canDelete(actor, ticket, responses)
	default:
		return Deny(domain.ReasonUnsupported)
	}
}

func canRespond(actor *domain.User, responses []domain.Response) Decision {
	if actor.IsAdmin {
		return Allow()
	}
	if domain.HasAdminResponse(responses) {
		return Deny(domain.ReasonAdminResponded)
	}
	return Allow()
}

func canEdit(actor *domain.User, ticket *domain.Ticket, responses []domain.Response, patch *domain.TicketPatch) Decision {
	if !actor.IsAdmin && !ticket.OwnedBy(actor.ID) {
		return Deny(domain.ReasonNotOwner)
	}
	// applies to admins as well
	if domain.PhaseOf(responses) == domain.PhaseLocked {
		return Deny(domain.ReasonHasResponses)
	}
	if patch != nil && patch.Status != nil {
		return Deny(domain.ReasonStatusForbidden)
	}
	return Allow()
}

func canDelete(actor *domain.User, ticket *domain.Ticket, responses []domain.Response) Decision {
	if actor.IsAdmin {
		return Deny(domain.ReasonAdminCannotDelete)
	}
	if !ticket.OwnedBy(actor.ID) {
		return Deny(domain.ReasonNotOwner)
	}
	if domain.PhaseOf(responses) == domain.PhaseLocked {
		return Deny(domain.ReasonHasResponses)
	}
	return Allow()
}

func requireAdmin(actor *domain.User) Decision {
	if !actor.IsAdmin {
		return Deny(domain.ReasonNotAdmin)
	}
	return Allow()
}

// VisibleTo reports whether actor may see ticket in listings.
func VisibleTo(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.IsAdmin || ticket.OwnedBy(actor.ID)
}

// OwnerScope returns the owner id listings must be restricted to, or nil when
// the actor sees every ticket.
func OwnerScope(actor *domain.User) *string {
	if actor.IsAdmin {
		return nil
	}
	id := actor.ID
	return &id
}
