package adminapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/webserver"
)

func registerQueueRoutes() {
	webserver.ApiGET("/queues", listQueues)
	webserver.ApiPOST("/queues", postQueue)
	webserver.ApiPUT("/queues/:id", putQueue)
	webserver.ApiDELETE("/queues/:id", deleteQueue)
}

func listQueues(c echo.Context) error {
	claims := webserver.Claims(c)
	queues, err := env.repos.Queues.ListByTenant(c.Request().Context(), claims.TenantID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "queue listing failed", nil)
	}
	return ok(c, queues)
}

type queueRequest struct {
	Name            string `json:"name" validate:"required"`
	Color           string `json:"color"`
	GreetingMessage string `json:"greeting_message"`
}

func postQueue(c echo.Context) error {
	claims := webserver.Claims(c)
	var req queueRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
	}
	queue := &domain.Queue{
		ID:              uuid.NewString(),
		TenantID:        claims.TenantID,
		Name:            req.Name,
		Color:           req.Color,
		GreetingMessage: req.GreetingMessage,
	}
	if err := env.repos.Queues.Create(c.Request().Context(), queue); err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "queue creation failed", err.Error())
	}
	return ok(c, queue)
}

func putQueue(c echo.Context) error {
	claims := webserver.Claims(c)
	ctx := c.Request().Context()
	queue, err := env.repos.Queues.FindByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "queue lookup failed", nil)
	}
	if queue == nil || queue.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "queue not found", nil)
	}
	var req queueRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if req.Name != "" {
		queue.Name = req.Name
	}
	if req.Color != "" {
		queue.Color = req.Color
	}
	if req.GreetingMessage != "" {
		queue.GreetingMessage = req.GreetingMessage
	}
	if err := env.repos.Queues.Save(ctx, queue); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "queue update failed", err.Error())
	}
	return ok(c, queue)
}

func deleteQueue(c echo.Context) error {
	claims := webserver.Claims(c)
	ctx := c.Request().Context()
	queue, err := env.repos.Queues.FindByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "queue lookup failed", nil)
	}
	if queue == nil || queue.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "queue not found", nil)
	}
	if err := env.repos.Queues.Delete(ctx, queue.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "queue delete failed", err.Error())
	}
	return ok(c, map[string]interface{}{"deleted": true})
}
