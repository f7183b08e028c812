package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orrn/printbridge/internal/autostart"
	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/control"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the print bridge server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// program adapts the app to the service manager.
type program struct {
	cfg      *config.Config
	launcher *autostart.Launcher
	app      *app
}

// Start must not block; the HTTP server runs on its own goroutines.
func (p *program) Start(s service.Service) error {
	var launcher control.AutoLauncher
	if p.launcher != nil {
		launcher = p.launcher
	}

	a, err := newApp(p.cfg, launcher)
	if err != nil {
		return err
	}

	if err := a.start(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.stop(ctx)
		return err
	}

	p.app = a
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.app == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down")
	p.app.stop(ctx)
	p.app = nil
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prg := &program{cfg: cfg}

	launcher, err := autostart.New(prg, serviceConfigPath())
	if err != nil {
		log.WithError(err).Warn("service manager unavailable, auto-launch disabled")
	} else {
		prg.launcher = launcher
	}

	if launcher == nil || service.Interactive() {
		return runInteractive(prg)
	}

	return launcher.Service().Run()
}

func runInteractive(prg *program) error {
	if err := prg.Start(nil); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	return prg.Stop(nil)
}

// serviceConfigPath makes --config absolute, since services do not start in
// the caller's working directory.
func serviceConfigPath() string {
	if configPath == "" {
		return ""
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return configPath
	}
	return abs
}
