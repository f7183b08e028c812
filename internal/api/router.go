// Package api assembles the HTTP surface: the open print endpoints used by
// web pages and the /api command channel used by the settings UI.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printbridge/internal/api/handlers"
	"github.com/orrn/printbridge/internal/api/middleware"
	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
)

// Deps wires the router. Lister, History, Archiver and Webhooks may be nil.
type Deps struct {
	Config   *config.Config
	Printer  handlers.Printer
	Channel  *control.Channel
	Lister   core.PrinterLister
	Cutter   handlers.Cutter
	Statuses handlers.StatusSource
	History  handlers.HistoryStats
	Archiver handlers.Archiver
	Webhooks handlers.Webhooks
	Auth     *middleware.AuthMiddleware
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(), middleware.CORS())

	cfg := d.Config

	jobs := handlers.NewJobHandler(d.Printer, d.Channel)
	printers := handlers.NewPrinterHandler(d.Lister, d.Channel, d.Cutter, cfg.Printers.DefaultIP, cfg.Printers.RawPort)
	settings := handlers.NewSettingsHandler(d.Channel, cfg.Server.Version, cfg.Printers.DefaultIP, cfg.Printers.RawPort)
	events := handlers.NewEventHandler(d.Channel)
	dashboard := handlers.NewDashboardHandler(d.Channel, d.Statuses, d.History)

	settings.RegisterPublicRoutes(r)
	printers.RegisterPublicRoutes(r)
	jobs.RegisterPublicRoutes(r)

	r.POST("/api/login", d.Auth.LoginHandler)
	r.POST("/api/logout", d.Auth.LogoutHandler)
	r.GET("/api/auth/status", d.Auth.StatusHandler)

	apiGroup := r.Group("/api", d.Auth.RequireAuth())
	jobs.RegisterRoutes(apiGroup)
	printers.RegisterRoutes(apiGroup)
	settings.RegisterRoutes(apiGroup)
	events.RegisterRoutes(apiGroup)
	dashboard.RegisterRoutes(apiGroup)

	if d.Archiver != nil {
		handlers.NewArchiveHandler(d.Archiver).RegisterRoutes(apiGroup)
	}
	if d.Webhooks != nil {
		handlers.NewWebhookHandler(d.Webhooks).RegisterRoutes(apiGroup)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
	})

	return r
}
