package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/api"
	"github.com/orrn/printbridge/internal/api/middleware"
	"github.com/orrn/printbridge/internal/archive"
	"github.com/orrn/printbridge/internal/backend"
	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
	"github.com/orrn/printbridge/internal/db"
	"github.com/orrn/printbridge/internal/notify"
	"github.com/orrn/printbridge/internal/server"
	"github.com/orrn/printbridge/internal/settings"
	"github.com/orrn/printbridge/internal/webhook"
)

// app owns every long-lived component of a running bridge.
type app struct {
	cfg      *config.Config
	settings *settings.Store
	manager  *core.Manager
	monitor  *core.StatusMonitor
	database *sql.DB
	recorder *db.Recorder
	archiver *archive.Archiver
	webhooks *webhook.WebhookSender
	server   *server.Controller
	router   *gin.Engine

	unsubscribe []func()
}

// newApp wires the components. The job history is optional: when its
// database cannot be opened the bridge runs without it.
func newApp(cfg *config.Config, launcher control.AutoLauncher) (*app, error) {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	settingsPath := cfg.Settings.Path
	if settingsPath == "" {
		settingsPath = settings.DefaultPath()
	}
	store := settings.Load(settingsPath)

	be, err := backend.New(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise printer backend: %w", err)
	}

	a := &app{cfg: cfg, settings: store}

	bus := core.NewBus()
	sender := core.NewRawSender(cfg.Printers.ConnectionTimeout)
	a.manager = core.NewManager(core.ManagerConfigFrom(cfg), be.Renderer, store, sender, bus)
	a.monitor = core.NewStatusMonitor(be.Lister, bus, cfg.Printers.StatusPollInterval)
	a.subscribe(bus, notify.NewLogger(nil))

	deps := api.Deps{
		Config:   cfg,
		Printer:  a.manager,
		Lister:   be.Lister,
		Cutter:   sender,
		Statuses: a.monitor,
	}
	var history control.HistoryReader

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).WithField("path", cfg.Database.Path).Error("job history disabled")
	} else {
		a.database = database
		h := db.NewHistory(database)
		history = h
		deps.History = h

		a.recorder = db.NewRecorder(h)
		a.subscribe(bus, a.recorder)

		a.archiver, err = archive.NewArchiver(h, archive.ArchiveConfig{
			ArchivePath: cfg.Database.ArchivePath,
			ArchiveDays: cfg.Database.ArchiveDays,
		})
		if err != nil {
			log.WithError(err).Error("history archive disabled")
		} else {
			deps.Archiver = a.archiver
		}
	}

	if len(cfg.Webhooks.Endpoints) > 0 {
		a.webhooks = webhook.NewWebhookSender(cfg.Webhooks)
		a.subscribe(bus, a.webhooks)
		deps.Webhooks = a.webhooks
	}

	a.server = server.New(cfg.Server, func(port int) error {
		return store.Save(settings.Patch{Port: &port})
	})

	deps.Channel = control.New(control.Deps{
		Jobs:     a.manager,
		Lister:   be.Lister,
		Settings: store,
		Server:   a.server,
		Launcher: launcher,
		History:  history,
		Bus:      bus,
	})

	deps.Auth, err = middleware.NewAuthMiddleware(cfg.Auth)
	if err != nil {
		a.close()
		return nil, err
	}

	a.router = api.NewRouter(deps)

	log.WithFields(log.Fields{
		"backend":  be.Kind,
		"settings": store.Path(),
		"printing": be.Renderer != nil,
	}).Info("printbridge initialised")

	return a, nil
}

func (a *app) subscribe(bus *core.Bus, s core.Subscriber) {
	a.unsubscribe = append(a.unsubscribe, bus.Subscribe(s))
}

func (a *app) start() error {
	if a.recorder != nil {
		a.recorder.Start()
	}
	if a.archiver != nil {
		a.archiver.Start()
	}
	if a.webhooks != nil {
		a.webhooks.Start()
	}
	a.monitor.Start()

	if err := a.server.Start(a.router, a.settings.Port()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"local":      fmt.Sprintf("http://localhost:%d", a.server.Port()),
		"network":    fmt.Sprintf("http://%s:%d", control.LocalIP(), a.server.Port()),
		"printer_ip": fmt.Sprintf("%s:%d", a.cfg.Printers.DefaultIP, a.cfg.Printers.RawPort),
	}).Info("printbridge ready")

	return nil
}

// stop shuts the server down first so no new jobs arrive, then waits for
// in-flight jobs and their cuts before closing the subscribers.
func (a *app) stop(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := a.manager.Close(ctx); err != nil {
		log.WithError(err).Warn("print jobs still running at shutdown")
	}
	a.monitor.Stop()
	a.close()
}

func (a *app) close() {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	if a.webhooks != nil {
		a.webhooks.Stop()
	}
	if a.archiver != nil {
		a.archiver.Stop()
	}
	if a.recorder != nil {
		a.recorder.Stop()
	}
	if a.database != nil {
		a.database.Close()
	}
}
