package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-tickets/internal/events"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	d := events.NewInMemoryDispatcher()

	var calls []string
	d.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(events.EventTicketDeleted, func(context.Context, events.Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	err := d.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t-1"})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:t-1", "second:t-1"}, calls)
}

func TestDispatcher_PublishWithoutListeners(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), events.Event{Type: events.EventResponseCreated}))
}
