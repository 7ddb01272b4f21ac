package repository

import (
	"context"

	"github.com/spec-kit/support-tickets/internal/domain"
)

// ResponseRepository manages ticket thread responses. Responses are
// append-only, so there is no update or delete.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.Response) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type responseRepository struct {
	db DBTX
}

// NewResponseRepository builds repository.
func NewResponseRepository(db DBTX) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Create(ctx context.Context, response *domain.Response) error {
	const query = `
        INSERT INTO ticket_responses (ticket_id, author_id, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		response.TicketID,
		response.AuthorID,
		response.Message,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	const query = `
        SELECT r.id, r.ticket_id, r.author_id, u.username, u.is_admin, r.message, r.created_at
        FROM ticket_responses r JOIN users u ON u.id = r.author_id
        WHERE r.ticket_id=$1 ORDER BY r.created_at ASC, r.id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(
			&resp.ID,
			&resp.TicketID,
			&resp.AuthorID,
			&resp.AuthorUsername,
			&resp.AuthorIsAdmin,
			&resp.Message,
			&resp.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}

func (r *responseRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_responses WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}
