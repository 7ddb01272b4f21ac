package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-tickets/internal/access"
	"github.com/spec-kit/support-tickets/internal/domain"
)

var (
	owner    = &domain.User{ID: "u-owner", Username: "owner", IsActive: true}
	stranger = &domain.User{ID: "u-other", Username: "other", IsActive: true}
	admin    = &domain.User{ID: "u-admin", Username: "admin", IsAdmin: true, IsActive: true}
)

func newTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "t-1",
		OwnerID:     owner.ID,
		Title:       "Printer broken",
		Description: "It jams",
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusOpen,
	}
}

func userReply() domain.Response {
	return domain.Response{ID: "r-u", TicketID: "t-1", AuthorID: owner.ID, Message: "any news?"}
}

func adminReply() domain.Response {
	return domain.Response{ID: "r-a", TicketID: "t-1", AuthorID: admin.ID, AuthorIsAdmin: true, Message: "on it"}
}

func ptr[T any](v T) *T { return &v }

func TestDecide(t *testing.T) {
	t.Parallel()

	statusPatch := &domain.TicketPatch{Status: ptr(domain.TicketStatusClosed)}
	titlePatch := &domain.TicketPatch{Title: ptr("new title")}

	tests := []struct {
		name      string
		actor     *domain.User
		responses []domain.Response
		action    access.Action
		patch     *domain.TicketPatch
		want      access.Decision
	}{
		{"owner edits editable ticket", owner, nil, access.ActionEditTicket, titlePatch, access.Allow()},
		{"admin edits editable ticket", admin, nil, access.ActionEditTicket, titlePatch, access.Allow()},
		{"stranger edits", stranger, nil, access.ActionEditTicket, titlePatch, access.Deny(domain.ReasonNotOwner)},
		{"stranger edits locked ticket reports ownership first", stranger, []domain.Response{adminReply()}, access.ActionEditTicket, statusPatch, access.Deny(domain.ReasonNotOwner)},
		{"owner edits locked ticket", owner, []domain.Response{userReply()}, access.ActionEditTicket, titlePatch, access.Deny(domain.ReasonHasResponses)},
		{"admin edits locked ticket", admin, []domain.Response{adminReply()}, access.ActionEditTicket, titlePatch, access.Deny(domain.ReasonHasResponses)},
		{"locked check precedes status check", owner, []domain.Response{userReply()}, access.ActionEditTicket, statusPatch, access.Deny(domain.ReasonHasResponses)},
		{"owner sets status through edit", owner, nil, access.ActionEditTicket, statusPatch, access.Deny(domain.ReasonStatusForbidden)},
		{"admin sets status through edit", admin, nil, access.ActionEditTicket, statusPatch, access.Deny(domain.ReasonStatusForbidden)},
		{"edit without payload", owner, nil, access.ActionEditTicket, nil, access.Allow()},

		{"admin changes status", admin, []domain.Response{adminReply()}, access.ActionChangeStatus, nil, access.Allow()},
		{"owner changes status", owner, nil, access.ActionChangeStatus, nil, access.Deny(domain.ReasonNotAdmin)},

		{"owner deletes editable ticket", owner, nil, access.ActionDeleteTicket, nil, access.Allow()},
		{"owner deletes locked ticket", owner, []domain.Response{userReply()}, access.ActionDeleteTicket, nil, access.Deny(domain.ReasonHasResponses)},
		{"stranger deletes", stranger, nil, access.ActionDeleteTicket, nil, access.Deny(domain.ReasonNotOwner)},
		{"stranger deletes locked ticket", stranger, []domain.Response{userReply()}, access.ActionDeleteTicket, nil, access.Deny(domain.ReasonNotOwner)},
		{"admin deletes", admin, nil, access.ActionDeleteTicket, nil, access.Deny(domain.ReasonAdminCannotDelete)},
		{"admin deletes locked ticket", admin, []domain.Response{adminReply()}, access.ActionDeleteTicket, nil, access.Deny(domain.ReasonAdminCannotDelete)},

		{"owner responds to empty thread", owner, nil, access.ActionCreateResponse, nil, access.Allow()},
		{"owner responds after own reply", owner, []domain.Response{userReply()}, access.ActionCreateResponse, nil, access.Allow()},
		{"owner responds after admin reply", owner, []domain.Response{userReply(), adminReply()}, access.ActionCreateResponse, nil, access.Deny(domain.ReasonAdminResponded)},
		{"stranger responds after admin reply", stranger, []domain.Response{adminReply()}, access.ActionCreateResponse, nil, access.Deny(domain.ReasonAdminResponded)},
		{"admin responds after admin reply", admin, []domain.Response{adminReply()}, access.ActionCreateResponse, nil, access.Allow()},

		{"admin lists responses", admin, nil, access.ActionListResponses, nil, access.Allow()},
		{"owner lists responses", owner, nil, access.ActionListResponses, nil, access.Deny(domain.ReasonNotAdmin)},

		{"unknown action", admin, nil, access.Action("archive"), nil, access.Deny(domain.ReasonUnsupported)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := access.Decide(tc.actor, newTicket(), tc.responses, tc.action, tc.patch)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecide_AdminDeleteDeniedRegardlessOfOwnership(t *testing.T) {
	t.Parallel()

	ticket := newTicket()
	ticket.OwnerID = admin.ID

	for _, responses := range [][]domain.Response{nil, {userReply()}, {adminReply(), userReply()}} {
		got := access.Decide(admin, ticket, responses, access.ActionDeleteTicket, nil)
		assert.Equal(t, access.Deny(domain.ReasonAdminCannotDelete), got)
	}
}

func TestDecide_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	ticket := newTicket()
	before := *ticket
	patch := &domain.TicketPatch{Title: ptr("changed")}

	access.Decide(owner, ticket, nil, access.ActionEditTicket, patch)

	assert.Equal(t, before, *ticket)
}

func TestDecision_Err(t *testing.T) {
	t.Parallel()

	require.NoError(t, access.Allow().Err())

	err := access.Deny(domain.ReasonHasResponses).Err()
	require.Error(t, err)
	denied, ok := domain.IsPermissionDenied(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonHasResponses, denied.Reason)
	assert.Equal(t, "permission denied: has responses", err.Error())
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	ticket := newTicket()

	assert.True(t, access.VisibleTo(owner, ticket))
	assert.True(t, access.VisibleTo(admin, ticket))
	assert.False(t, access.VisibleTo(stranger, ticket))

	assert.Nil(t, access.OwnerScope(admin))
	scope := access.OwnerScope(stranger)
	require.NotNil(t, scope)
	assert.Equal(t, stranger.ID, *scope)
}
