package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-tickets/internal/domain"
)

func TestResponses_MissingAuthorStillListed(t *testing.T) {
	s := New()
	ctx := context.Background()

	owner := &domain.User{Username: "owner", IsActive: true}
	ghost := &domain.User{Username: "ghost", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, owner))
	require.NoError(t, s.Users().Create(ctx, ghost))

	tk := &domain.Ticket{OwnerID: owner.ID, Title: "t", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow}
	require.NoError(t, s.Tickets().Create(ctx, tk))
	require.NoError(t, s.Responses().Create(ctx, &domain.Response{TicketID: tk.ID, AuthorID: ghost.ID, Message: "hello"}))

	s.mu.Lock()
	delete(s.users, ghost.ID)
	s.mu.Unlock()

	thread, err := s.Responses().ListByTicket(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, ghost.ID, thread[0].AuthorID)
	assert.Empty(t, thread[0].AuthorUsername)
	assert.False(t, thread[0].AuthorIsAdmin)

	count, err := s.Responses().CountByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, len(thread), count)
}
