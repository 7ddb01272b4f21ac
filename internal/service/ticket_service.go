package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-tickets/internal/access"
	"github.com/spec-kit/support-tickets/internal/domain"
	"github.com/spec-kit/support-tickets/internal/events"
	"github.com/spec-kit/support-tickets/internal/observability"
	"github.com/spec-kit/support-tickets/internal/repository"
)

const maxTitleLength = 255

// TicketService coordinates ticket workflows. Every mutation loads the
// current state, asks the access package for a decision and only then
// writes. Nothing is locked between the read and the write.
type TicketService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters. Search matches title or
// description case-insensitively.
type TicketListFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Search   string
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// CreateTicket opens a ticket owned by actor. Any authenticated user may do so.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		OwnerID:     actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if err := validateContent(ticket); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to actor, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		OwnerID:  access.OwnerScope(actor),
		Status:   filter.Status,
		Priority: filter.Priority,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		repoFilter.SearchTerm = &term
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket by id. It applies no visibility check.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("ticket")
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return ticket, nil
}

// GetTicketDetail returns the ticket together with its thread, oldest response first.
func (s *TicketService) GetTicketDetail(ctx context.Context, id string) (*domain.Ticket, []domain.Response, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	responses, err := s.loadResponses(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, responses, nil
}

// TicketPhase reports whether the ticket's content may still be edited.
func (s *TicketService) TicketPhase(ctx context.Context, id string) (domain.EditPhase, error) {
	count, err := s.responses.CountByTicket(ctx, id)
	if err != nil {
		return domain.PhaseEditable, fmt.Errorf("count responses: %w", err)
	}
	return domain.PhaseForCount(count), nil
}

// UpdateTicket edits title, description and priority. A full update
// (partial=false) must carry all three fields.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, id string, patch domain.TicketPatch, partial bool) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.loadResponses(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, ticket, responses, access.ActionEditTicket, &patch); err != nil {
		return nil, err
	}

	if !partial && !patch.Complete() {
		return nil, domain.NewValidationError("title, description and priority are required", missingFields(patch))
	}

	patch.Apply(ticket)
	ticket.Title = strings.TrimSpace(ticket.Title)
	ticket.Description = strings.TrimSpace(ticket.Description)
	if err := validateContent(ticket); err != nil {
		return nil, err
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketUpdatedPayload{Fields: presentFields(patch), Partial: partial},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket that has never been answered.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, id string) error {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	responses, err := s.loadResponses(ctx, ticket.ID)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, actor, ticket, responses, access.ActionDeleteTicket, nil); err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("ticket")
		}
		return fmt.Errorf("delete ticket: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
	})
	return nil
}

// ChangeStatus sets the ticket status. Any status may follow any other and
// setting the current status again succeeds.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, ticket, nil, access.ActionChangeStatus, nil); err != nil {
		return nil, err
	}

	if !status.Valid() {
		return nil, domain.NewValidationError("invalid status", map[string]any{"status": string(status)})
	}

	previous := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketStatusChangedPayload{OldStatus: previous, NewStatus: status},
	})
	return ticket, nil
}

// CreateResponse appends a message to the ticket's thread. The first
// response locks the ticket's content for good.
func (s *TicketService) CreateResponse(ctx context.Context, actor *domain.User, ticketID, message string) (*domain.Response, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	responses, err := s.loadResponses(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, ticket, responses, access.ActionCreateResponse, nil); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.NewValidationError("message is required", map[string]any{"message": "required"})
	}

	response := &domain.Response{
		TicketID:       ticket.ID,
		AuthorID:       actor.ID,
		AuthorUsername: actor.Username,
		AuthorIsAdmin:  actor.IsAdmin,
		Message:        message,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventResponseCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.ResponseCreatedPayload{
			ResponseID:    response.ID,
			AuthorIsAdmin: actor.IsAdmin,
			BodyPreview:   preview(message, 120),
		},
	})
	return response, nil
}

// ListResponses returns the thread oldest first. Only admins may list
// responses through this path; owners see them via GetTicketDetail.
func (s *TicketService) ListResponses(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Response, error) {
	if err := s.authorize(ctx, actor, nil, nil, access.ActionListResponses, nil); err != nil {
		return nil, err
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.loadResponses(ctx, ticket.ID)
}

func (s *TicketService) authorize(ctx context.Context, actor *domain.User, ticket *domain.Ticket, responses []domain.Response, action access.Action, patch *domain.TicketPatch) error {
	decision := access.Decide(actor, ticket, responses, action, patch)
	if decision.Allowed {
		return nil
	}

	fields := []zap.Field{
		zap.String("action", string(action)),
		zap.String("reason", string(decision.Reason)),
		zap.String("actor_id", actor.ID),
	}
	if ticket != nil {
		fields = append(fields, zap.String("ticket_id", ticket.ID))
	}
	s.logger.Debug("ticket action denied", fields...)
	s.metrics.RecordDenied(string(action), string(decision.Reason))
	return decision.Err()
}

func (s *TicketService) loadResponses(ctx context.Context, ticketID string) ([]domain.Response, error) {
	responses, err := s.responses.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, IsAdmin: user.IsAdmin}
}

func validateContent(t *domain.Ticket) error {
	fields := map[string]any{}
	if t.Title == "" {
		fields["title"] = "required"
	} else if utf8.RuneCountInString(t.Title) > maxTitleLength {
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
	}
	if t.Description == "" {
		fields["description"] = "required"
	}
	if !t.Priority.Valid() {
		fields["priority"] = "must be one of low, medium, high"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid ticket", fields)
	}
	return nil
}

func missingFields(p domain.TicketPatch) map[string]any {
	fields := map[string]any{}
	if p.Title == nil {
		fields["title"] = "required"
	}
	if p.Description == nil {
		fields["description"] = "required"
	}
	if p.Priority == nil {
		fields["priority"] = "required"
	}
	return fields
}

func presentFields(p domain.TicketPatch) []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	return fields
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
