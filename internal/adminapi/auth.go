package adminapi

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
	"github.com/zapticket/zapticket/internal/webserver"
)

func registerAuthRoutes() {
	webserver.PubPOST("/login", postLogin)
	webserver.PubPOST("/register", postRegister)
	webserver.ApiPOST("/auth/refresh", postRefresh)
	webserver.ApiGET("/profile", getProfile)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func postLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required", nil)
	}

	ctx := c.Request().Context()
	user, err := env.repos.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "login failed", nil)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}

	token, err := issueToken(user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "token signing failed", nil)
	}
	zap.L().Info("operator logged in",
		zap.String("namespace", "web"),
		zap.String("email", user.Email))
	return ok(c, map[string]interface{}{"token": token, "user": user})
}

type registerRequest struct {
	TenantName     string `json:"tenant_name" validate:"required"`
	DocumentNumber string `json:"document_number" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
}

// postRegister creates a tenant and its first admin in one transaction so a
// half-created account can never log in.
func postRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "missing or invalid fields", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "HASH_ERROR", "password hashing failed", nil)
	}

	ctx := c.Request().Context()
	tenant := &domain.Tenant{
		ID:             uuid.NewString(),
		Name:           req.TenantName,
		DocumentNumber: req.DocumentNumber,
		Status:         domain.TenantActive,
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	err = env.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tenants.Create(ctx, tenant); err != nil {
			return err
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		return fail(c, http.StatusConflict, "REGISTER_FAILED", "account creation failed", err.Error())
	}
	return ok(c, map[string]interface{}{"tenant": tenant, "user": user})
}

func postRefresh(c echo.Context) error {
	claims := webserver.Claims(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "token claims missing", nil)
	}
	user, err := env.repos.Users.FindByID(c.Request().Context(), claims.UserID)
	if err != nil || user == nil {
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "account no longer exists", nil)
	}
	token, err := issueToken(user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "token signing failed", nil)
	}
	return ok(c, map[string]interface{}{"token": token})
}

func getProfile(c echo.Context) error {
	claims := webserver.Claims(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "token claims missing", nil)
	}
	user, err := env.repos.Users.FindByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "profile lookup failed", nil)
	}
	if user == nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "account no longer exists", nil)
	}
	return ok(c, user)
}

func issueToken(user *domain.User) (string, error) {
	expire := time.Duration(env.cfg.Web.JwtExpireHour) * time.Hour
	claims := &webserver.TokenClaims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(env.cfg.Web.Secret))
}
