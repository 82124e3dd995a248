package adminapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/webserver"
)

func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers)
	webserver.ApiPOST("/users", postUser)
	webserver.ApiPUT("/users/:id", putUser)
	webserver.ApiDELETE("/users/:id", deleteUser)
}

func listUsers(c echo.Context) error {
	claims := webserver.Claims(c)
	users, err := env.repos.Users.ListByTenant(c.Request().Context(), claims.TenantID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "user listing failed", nil)
	}
	return ok(c, users)
}

type userRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func postUser(c echo.Context) error {
	claims := webserver.Claims(c)
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "missing or invalid fields", err.Error())
	}
	if req.Password == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "password is required", nil)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleAgent
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "HASH_ERROR", "password hashing failed", nil)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		TenantID:     claims.TenantID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := env.repos.Users.Create(c.Request().Context(), user); err != nil {
		return fail(c, http.StatusConflict, "CREATE_FAILED", "user creation failed", err.Error())
	}
	return ok(c, user)
}

func putUser(c echo.Context) error {
	claims := webserver.Claims(c)
	ctx := c.Request().Context()
	user, err := env.repos.Users.FindByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "user lookup failed", nil)
	}
	if user == nil || user.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	}

	var req userRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "HASH_ERROR", "password hashing failed", nil)
		}
		user.PasswordHash = string(hash)
	}
	if err := env.repos.Users.Save(ctx, user); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "user update failed", err.Error())
	}
	return ok(c, user)
}

func deleteUser(c echo.Context) error {
	claims := webserver.Claims(c)
	ctx := c.Request().Context()
	user, err := env.repos.Users.FindByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "user lookup failed", nil)
	}
	if user == nil || user.TenantID != claims.TenantID {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	}
	if err := env.repos.Users.Delete(ctx, user.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "user delete failed", err.Error())
	}
	return ok(c, map[string]interface{}{"deleted": true})
}
