package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-tickets/internal/api/dto"
	"github.com/spec-kit/support-tickets/internal/auth"
	"github.com/spec-kit/support-tickets/internal/domain"
	"github.com/spec-kit/support-tickets/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// TicketsHandler manages ticket and response endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	var query dto.TicketListQuery
	if err := bindQuery(c, &query); err != nil {
		return err
	}

	page, pageSize := query.Page, query.PageSize
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	filter := service.TicketListFilter{
		Search: query.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if query.Status != "" {
		status := domain.TicketStatus(query.Status)
		filter.Status = &status
	}
	if query.Priority != "" {
		priority := domain.TicketPriority(query.Priority)
		filter.Priority = &priority
	}

	tickets, err := h.service.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page, PageSize: pageSize, Count: len(items)},
	})
}

// GetTicket GET /api/tickets/:id. The default body is the ticket plus its
// derived phase and omits the thread; clients that want responses inline
// must ask with ?expand=responses.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := auth.RequireActor(c); err != nil {
		return err
	}
	ctx := c.UserContext()

	if c.Query("expand") == "responses" {
		ticket, responses, err := h.service.GetTicketDetail(ctx, c.Params("id"))
		if err != nil {
			return err
		}
		resp := dto.NewTicketResponse(ticket)
		resp.Phase = domain.PhaseOf(responses).String()
		resp.Responses = dto.NewResponseList(responses)
		return c.JSON(fiber.Map{"data": resp})
	}

	ticket, err := h.service.GetTicket(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	phase, err := h.service.TicketPhase(ctx, ticket.ID)
	if err != nil {
		return err
	}
	resp := dto.NewTicketResponse(ticket)
	resp.Phase = phase.String()
	return c.JSON(fiber.Map{"data": resp})
}

// ReplaceTicket PUT /api/tickets/:id.
func (h *TicketsHandler) ReplaceTicket(c *fiber.Ctx) error {
	return h.update(c, false)
}

// PatchTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) PatchTicket(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *TicketsHandler) update(c *fiber.Ctx, partial bool) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), req.Patch(), partial)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CreateResponse POST /api/tickets/:id/responses.
func (h *TicketsHandler) CreateResponse(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	response, err := h.service.CreateResponse(c.UserContext(), actor, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewResponseResponse(response)})
}

// ListResponses GET /api/tickets/:id/responses.
func (h *TicketsHandler) ListResponses(c *fiber.Ctx) error {
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	responses, err := h.service.ListResponses(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResponseList(responses)})
}
