package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-tickets/internal/config"
	"github.com/spec-kit/support-tickets/internal/events"
)

func TestNotificationService_LogsAndStubs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "support@example.com",
		WebhookURL: "https://hooks.example.com/tickets",
	})
	n.RegisterHandlers()
	ctx := context.Background()

	assert.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventResponseCreated,
		TicketID: "t-1",
		Payload:  events.ResponseCreatedPayload{AuthorIsAdmin: false},
	}))
	assert.Equal(t, 1, logs.FilterMessage("ResponseCreated").Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())

	assert.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventResponseCreated,
		TicketID: "t-1",
		Payload:  events.ResponseCreatedPayload{AuthorIsAdmin: true},
	}))
	assert.Equal(t, 1, logs.FilterMessage("sendEmailNotificationStub").Len())

	assert.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketStatusChanged, TicketID: "t-1"}))
	assert.Equal(t, 2, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
}

func TestNotificationService_SkipsUnconfiguredChannels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}).RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t-2"}))
	assert.Equal(t, 1, logs.FilterMessage("TicketCreated").Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
