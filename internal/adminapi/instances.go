package adminapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/webserver"
)

func registerInstanceRoutes() {
	webserver.ApiGET("/instances", listInstances)
	webserver.ApiGET("/instances/:id", getInstance)
	webserver.ApiPOST("/instances", postInstance)
	webserver.ApiDELETE("/instances/:id", deleteInstance)
	webserver.ApiPOST("/instances/:id/start", postInstanceStart)
	webserver.ApiPOST("/instances/:id/stop", postInstanceStop)
	webserver.ApiPOST("/instances/:id/restart", postInstanceRestart)
	webserver.ApiPOST("/instances/:id/logout", postInstanceLogout)
	webserver.ApiGET("/instances/:id/qrcode", getInstanceQR)
	webserver.ApiGET("/instances/:id/qrcode.png", getInstanceQRImage)
}

func listInstances(c echo.Context) error {
	claims := webserver.Claims(c)
	instances, err := env.repos.Instances.ListByTenant(c.Request().Context(), claims.TenantID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "instance listing failed", nil)
	}
	return ok(c, instances)
}

func getInstance(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	return ok(c, inst)
}

type instanceRequest struct {
	Name      string `json:"name" validate:"required"`
	IsDefault bool   `json:"is_default"`
}

func postInstance(c echo.Context) error {
	claims := webserver.Claims(c)
	var req instanceRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
	}
	inst := &domain.Instance{
		ID:        uuid.NewString(),
		TenantID:  claims.TenantID,
		Name:      req.Name,
		Status:    domain.InstanceDisconnected,
		IsDefault: req.IsDefault,
	}
	if err := env.repos.Instances.Create(c.Request().Context(), inst); err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "instance creation failed", err.Error())
	}
	return ok(c, inst)
}

// deleteInstance tears the session down, wipes its credentials and removes
// the row.
func deleteInstance(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	ctx := c.Request().Context()
	if err := env.wa.Stop(ctx, inst.ID); err != nil {
		zap.L().Warn("instance stop before delete failed",
			zap.String("namespace", "web"),
			zap.String("instance_id", inst.ID),
			zap.Error(err))
	}
	if err := env.repos.Credentials.PurgeSession(ctx, inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "credential purge failed", err.Error())
	}
	if err := env.repos.Instances.Delete(ctx, inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "instance delete failed", err.Error())
	}
	return ok(c, map[string]interface{}{"deleted": true})
}

func postInstanceStart(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	if err := env.wa.Start(c.Request().Context(), inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "START_FAILED", "instance start failed", err.Error())
	}
	return ok(c, map[string]interface{}{"started": true})
}

func postInstanceStop(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	if err := env.wa.Stop(c.Request().Context(), inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "STOP_FAILED", "instance stop failed", err.Error())
	}
	return ok(c, map[string]interface{}{"stopped": true})
}

func postInstanceRestart(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	if err := env.wa.Restart(c.Request().Context(), inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "RESTART_FAILED", "instance restart failed", err.Error())
	}
	return ok(c, map[string]interface{}{"restarted": true})
}

func postInstanceLogout(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	if err := env.wa.Logout(c.Request().Context(), inst.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "LOGOUT_FAILED", "instance logout failed", err.Error())
	}
	return ok(c, map[string]interface{}{"logged_out": true})
}

func getInstanceQR(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	return ok(c, map[string]interface{}{
		"code":   inst.QRCode,
		"has_qr": inst.QRCode != "",
		"status": inst.Status,
	})
}

// getInstanceQRImage renders the current pairing code as a PNG for clients
// that cannot draw QR codes themselves.
func getInstanceQRImage(c echo.Context) error {
	inst, werr := findTenantInstance(c)
	if inst == nil {
		return werr
	}
	if inst.QRCode == "" {
		return fail(c, http.StatusNotFound, "NO_QR", "instance has no pending pairing code", nil)
	}
	png, err := qrcode.Encode(inst.QRCode, qrcode.Medium, 256)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "QR_ENCODE_FAILED", "qr render failed", nil)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// findTenantInstance loads the :id instance and enforces tenant ownership. A
// nil instance means the error response was already written.
func findTenantInstance(c echo.Context) (*domain.Instance, error) {
	claims := webserver.Claims(c)
	inst, err := env.repos.Instances.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "instance lookup failed", nil)
	}
	if inst == nil || inst.TenantID != claims.TenantID {
		return nil, fail(c, http.StatusNotFound, "NOT_FOUND", "instance not found", nil)
	}
	return inst, nil
}
