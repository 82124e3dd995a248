// Package adminapi implements the REST surface for operators: accounts,
// queues, contacts, tickets and gateway instance control.
package adminapi

import (
	"github.com/labstack/echo/v4"

	"github.com/zapticket/zapticket/config"
	"github.com/zapticket/zapticket/internal/repository"
	"github.com/zapticket/zapticket/internal/webserver"
	"github.com/zapticket/zapticket/internal/whatsapp"
)

type apiEnv struct {
	cfg   *config.AppConfig
	repos *repository.Repositories
	wa    *whatsapp.Service
}

var env *apiEnv

// Init wires the handler environment and registers every route on the shared
// web server. webserver.Init must have run first.
func Init(cfg *config.AppConfig, repos *repository.Repositories, wa *whatsapp.Service) {
	env = &apiEnv{cfg: cfg, repos: repos, wa: wa}
	registerAuthRoutes()
	registerUserRoutes()
	registerQueueRoutes()
	registerContactRoutes()
	registerTicketRoutes()
	registerInstanceRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return webserver.Fail(c, status, code, message, detail)
}
