// Package autostart registers printbridge with the OS service manager so it
// starts at login or boot.
package autostart

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
)

const (
	ServiceName        = "printbridge"
	serviceDisplayName = "PrintBridge"
	serviceDescription = "Local print bridge for thermal receipt printers"
)

// Config returns the service definition that runs `printbridge serve`.
func Config(configPath string) *service.Config {
	args := []string{"serve"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return &service.Config{
		Name:        ServiceName,
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		Arguments:   args,
	}
}

// Launcher toggles the service registration.
type Launcher struct {
	svc service.Service
}

func NewLauncher(svc service.Service) *Launcher {
	return &Launcher{svc: svc}
}

// New builds a Launcher for program with the default service definition.
func New(program service.Interface, configPath string) (*Launcher, error) {
	svc, err := service.New(program, Config(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return NewLauncher(svc), nil
}

func (l *Launcher) Service() service.Service {
	return l.svc
}

func (l *Launcher) Enabled() (bool, error) {
	_, err := l.svc.Status()
	if err != nil {
		if errors.Is(err, service.ErrNotInstalled) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query service status: %w", err)
	}
	return true, nil
}

func (l *Launcher) Enable() error {
	enabled, err := l.Enabled()
	if err != nil {
		return err
	}
	if enabled {
		return nil
	}

	if err := l.svc.Install(); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	log.WithField("service", ServiceName).Info("auto-launch enabled")
	return nil
}

func (l *Launcher) Disable() error {
	enabled, err := l.Enabled()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	_ = l.svc.Stop()
	if err := l.svc.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	log.WithField("service", ServiceName).Info("auto-launch disabled")
	return nil
}
