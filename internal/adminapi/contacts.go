package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zapticket/zapticket/internal/webserver"
)

func registerContactRoutes() {
	webserver.ApiGET("/contacts", listContacts)
	webserver.ApiGET("/contacts/:id", getContact)
	webserver.ApiPUT("/contacts/:id", putContact)
}

func listContacts(c echo.Context) error {
	claims := webserver.Claims(c)
	contacts, err := env.repos.Contacts.ListByTenant(c.Request().Context(), claims.TenantID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "contact listing failed", nil)
	}
	return ok(c, contacts)
}

func getContact(c echo.Context) error {
	claims := webserver.Claims(c)
	contact, err := env.repos.Contacts.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "contact lookup failed", nil)
	}
	if contact == nil || contact.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "contact not found", nil)
	}
	return ok(c, contact)
}

type contactRequest struct {
	Name          string `json:"name"`
	ProfilePicURL string `json:"profile_pic_url"`
}

func putContact(c echo.Context) error {
	claims := webserver.Claims(c)
	ctx := c.Request().Context()
	contact, err := env.repos.Contacts.FindByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "contact lookup failed", nil)
	}
	if contact == nil || contact.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "contact not found", nil)
	}
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if req.Name != "" {
		contact.Name = req.Name
	}
	if req.ProfilePicURL != "" {
		contact.ProfilePicURL = req.ProfilePicURL
	}
	if err := env.repos.Contacts.Save(ctx, contact); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "contact update failed", err.Error())
	}
	return ok(c, contact)
}
