package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/zapticket/zapticket/config"
	"github.com/zapticket/zapticket/internal/adminapi"
	"github.com/zapticket/zapticket/internal/app"
	"github.com/zapticket/zapticket/internal/repository"
	"github.com/zapticket/zapticket/internal/webserver"
	"github.com/zapticket/zapticket/internal/whatsapp"
)

// Conversation locks idle longer than this are reclaimed by the hourly sweep.
const gateIdleTTL = 30 * time.Minute

var (
	cfile  = flag.String("c", "/etc/zapticket.yml", "config file")
	initdb = flag.Bool("initdb", false, "drop and recreate the database schema, then exit")
)

func main() {
	flag.Parse()

	cfg := config.LoadConfig(*cfile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		fmt.Println("database initialized")
		return
	}

	repos := repository.New(application.DB())

	sqlDB, err := application.DB().DB()
	if err != nil {
		zap.L().Fatal("database handle unavailable", zap.Error(err))
	}
	dialect := "postgres"
	if cfg.Database.Type == "sqlite" {
		dialect = "sqlite3"
	}
	dialer, err := whatsapp.NewMeowDialer(context.Background(), sqlDB, dialect, cfg.Whatsapp.PrintQR, zap.L())
	if err != nil {
		zap.L().Fatal("gateway store init failed", zap.Error(err))
	}

	pool, err := ants.NewPool(cfg.Whatsapp.RouterWorkers)
	if err != nil {
		zap.L().Fatal("worker pool init failed", zap.Error(err))
	}
	defer pool.Release()

	gate := whatsapp.NewGate(gateIdleTTL)
	pipeline := whatsapp.NewPipeline(repos, zap.L())
	waSvc := whatsapp.NewService(dialer, repos, pipeline, gate, application.Notifier(), pool, zap.L())

	ws := webserver.Init(cfg)
	hub, err := webserver.NewHub(application.Bus(), zap.L())
	if err != nil {
		zap.L().Fatal("websocket hub init failed", zap.Error(err))
	}
	hub.Register()
	adminapi.Init(cfg, repos, waSvc)

	application.StartBackgroundJobs(waSvc)
	go waSvc.StartAll(context.Background())

	go func() {
		if err := ws.Start(); err != nil {
			zap.L().Error("web server stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	waSvc.Shutdown(shutdownCtx)
	_ = ws.Echo().Shutdown(shutdownCtx)
}
