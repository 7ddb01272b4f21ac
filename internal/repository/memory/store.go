// Package memory provides map-backed repositories with the same observable
// behavior as the Postgres ones. Services and handlers are tested against it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-tickets/internal/domain"
	"github.com/spec-kit/support-tickets/internal/repository"
)

// Store holds users, tickets and responses behind one lock.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	tickets   map[string]domain.Ticket
	responses map[string][]domain.Response
	clock     time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		tickets:   make(map[string]domain.Ticket),
		responses: make(map[string][]domain.Response),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Responses returns the response repository view.
func (s *Store) Responses() repository.ResponseRepository { return responseRepo{s} }

// tick advances the store clock so timestamps are strictly increasing.
// Callers hold the write lock.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.DateJoined = r.s.tick()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetActiveByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r userRepo) GetActiveByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Username == username && user.IsActive {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[ticket.OwnerID]; !ok {
		return fmt.Errorf("owner %s does not exist", ticket.OwnerID)
	}
	now := r.s.tick()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = ticket.Title
	stored.Description = ticket.Description
	stored.Priority = ticket.Priority
	stored.Status = ticket.Status
	stored.UpdatedAt = r.s.tick()
	r.s.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)
	delete(r.s.responses, id)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var term string
	if filter.SearchTerm != nil {
		term = strings.ToLower(*filter.SearchTerm)
	}

	result := make([]domain.Ticket, 0, len(r.s.tickets))
	for _, t := range r.s.tickets {
		if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			continue
		}
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

type responseRepo struct{ s *Store }

func (r responseRepo) Create(_ context.Context, response *domain.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[response.TicketID]; !ok {
		return fmt.Errorf("ticket %s does not exist", response.TicketID)
	}
	if _, ok := r.s.users[response.AuthorID]; !ok {
		return fmt.Errorf("author %s does not exist", response.AuthorID)
	}
	response.ID = uuid.NewString()
	response.CreatedAt = r.s.tick()
	r.s.responses[response.TicketID] = append(r.s.responses[response.TicketID], domain.Response{
		ID:        response.ID,
		TicketID:  response.TicketID,
		AuthorID:  response.AuthorID,
		Message:   response.Message,
		CreatedAt: response.CreatedAt,
	})
	return nil
}

func (r responseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.responses[ticketID]
	result := make([]domain.Response, 0, len(stored))
	for _, resp := range stored {
		// Author fields stay zero when the user is gone; the row still counts.
		if author, ok := r.s.users[resp.AuthorID]; ok {
			resp.AuthorUsername = author.Username
			resp.AuthorIsAdmin = author.IsAdmin
		}
		result = append(result, resp)
	}
	return result, nil
}

func (r responseRepo) CountByTicket(_ context.Context, ticketID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.responses[ticketID]), nil
}
