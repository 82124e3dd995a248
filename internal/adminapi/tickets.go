package adminapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
	"github.com/zapticket/zapticket/internal/webserver"
)

func registerTicketRoutes() {
	webserver.ApiGET("/tickets", listTickets)
	webserver.ApiGET("/tickets/:id", getTicket)
	webserver.ApiPOST("/tickets", postTicket)
	webserver.ApiGET("/tickets/:id/messages", listTicketMessages)
	webserver.ApiPOST("/tickets/:id/messages", postTicketMessage)
	webserver.ApiPUT("/tickets/:id/status", putTicketStatus)
	webserver.ApiPUT("/tickets/:id/transfer", putTicketTransfer)
	webserver.ApiPUT("/tickets/:id/assign", putTicketAssign)
}

func listTickets(c echo.Context) error {
	claims := webserver.Claims(c)
	filter := repository.TicketFilter{
		Status:  c.QueryParam("status"),
		QueueID: c.QueryParam("queue_id"),
		UserID:  c.QueryParam("user_id"),
		Limit:   cast.ToInt(c.QueryParam("limit")),
		Offset:  cast.ToInt(c.QueryParam("offset")),
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	tickets, err := env.repos.Tickets.List(c.Request().Context(), claims.TenantID, filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "ticket listing failed", nil)
	}
	return ok(c, tickets)
}

func getTicket(c echo.Context) error {
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	return ok(c, ticket)
}

type ticketRequest struct {
	ContactID  string `json:"contact_id" validate:"required"`
	InstanceID string `json:"instance_id"`
	QueueID    string `json:"queue_id"`
}

// postTicket opens a ticket from the operator side, e.g. for outbound-first
// conversations. The single-active-ticket rule applies here too.
func postTicket(c echo.Context) error {
	claims := webserver.Claims(c)
	var req ticketRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "contact_id is required", nil)
	}
	ctx := c.Request().Context()
	contact, err := env.repos.Contacts.FindByID(ctx, req.ContactID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "contact lookup failed", nil)
	}
	if contact == nil || contact.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "contact not found", nil)
	}
	existing, err := env.repos.Tickets.FindActiveByContact(ctx, claims.TenantID, contact.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "ticket lookup failed", nil)
	}
	if existing != nil {
		return fail(c, http.StatusConflict, "TICKET_EXISTS", "contact already has an active ticket", existing.ID)
	}

	ticket := &domain.Ticket{
		ID:         uuid.NewString(),
		TenantID:   claims.TenantID,
		ContactID:  contact.ID,
		InstanceID: req.InstanceID,
		Status:     domain.TicketOpen,
	}
	if req.QueueID != "" {
		ticket.QueueID = &req.QueueID
	}
	userID := claims.UserID
	ticket.UserID = &userID
	if err := env.repos.Tickets.Create(ctx, ticket); err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "ticket creation failed", err.Error())
	}
	return ok(c, ticket)
}

func listTicketMessages(c echo.Context) error {
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	messages, merr := env.repos.Messages.ListByTicket(c.Request().Context(), ticket.ID)
	if merr != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "message listing failed", nil)
	}
	return ok(c, messages)
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// postTicketMessage sends an operator reply through the ticket's gateway
// instance and records it in the conversation history.
func postTicketMessage(c echo.Context) error {
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "body is required", nil)
	}

	ctx := c.Request().Context()
	contact, cerr := env.repos.Contacts.FindByID(ctx, ticket.ContactID)
	if cerr != nil || contact == nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "contact lookup failed", nil)
	}

	if err := env.wa.SendText(ctx, ticket.InstanceID, contact.Number, req.Body); err != nil {
		zap.L().Error("outbound send failed",
			zap.String("namespace", "web"),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return fail(c, http.StatusBadGateway, "SEND_FAILED", "message delivery failed", err.Error())
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		Body:     req.Body,
		Type:     "chat",
		FromMe:   true,
		Read:     true,
	}
	if err := env.repos.Messages.Create(ctx, msg); err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "message persist failed", err.Error())
	}
	return ok(c, msg)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending open in_progress closed"`
}

func putTicketStatus(c echo.Context) error {
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown status", nil)
	}
	ticket.Status = req.Status
	if err := env.repos.Tickets.Save(c.Request().Context(), ticket); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "status update failed", err.Error())
	}
	return ok(c, ticket)
}

type transferRequest struct {
	QueueID string `json:"queue_id" validate:"required"`
}

func putTicketTransfer(c echo.Context) error {
	claims := webserver.Claims(c)
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "queue_id is required", nil)
	}
	ctx := c.Request().Context()
	queue, qerr := env.repos.Queues.FindByID(ctx, req.QueueID)
	if qerr != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "queue lookup failed", nil)
	}
	if queue == nil || queue.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "queue not found", nil)
	}
	ticket.QueueID = &queue.ID
	ticket.UserID = nil
	if err := env.repos.Tickets.Save(ctx, ticket); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "transfer failed", err.Error())
	}
	return ok(c, ticket)
}

type assignRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func putTicketAssign(c echo.Context) error {
	claims := webserver.Claims(c)
	ticket, werr := findTenantTicket(c)
	if ticket == nil {
		return werr
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required", nil)
	}
	ctx := c.Request().Context()
	user, uerr := env.repos.Users.FindByID(ctx, req.UserID)
	if uerr != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "user lookup failed", nil)
	}
	if user == nil || user.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	}
	ticket.UserID = &user.ID
	ticket.Status = domain.TicketInProgress
	if err := env.repos.Tickets.Save(ctx, ticket); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "assign failed", err.Error())
	}
	return ok(c, ticket)
}

// findTenantTicket loads the :id ticket and enforces tenant ownership. A nil
// ticket means the error response was already written; return the second
// value as-is.
func findTenantTicket(c echo.Context) (*domain.Ticket, error) {
	claims := webserver.Claims(c)
	ticket, err := env.repos.Tickets.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "ticket lookup failed", nil)
	}
	if ticket == nil || ticket.TenantID != claims.TenantID {
		return nil, fail(c, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
	}
	return ticket, nil
}
