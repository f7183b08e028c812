// Package backend provides the rendering and printer enumeration backends
// used by the print engine.
package backend

import (
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/core"
)

const (
	KindAuto    = "auto"
	KindCommand = "command"
	KindDryRun  = "dryrun"
)

// Backend pairs a renderer with a printer lister. Either may be nil when the
// platform offers none.
type Backend struct {
	Kind     string
	Renderer core.Renderer
	Lister   core.PrinterLister
}

// New selects a backend by cfg.Kind. "auto" uses the print command when its
// executable is on PATH and otherwise leaves Renderer nil.
func New(cfg config.BackendConfig) (*Backend, error) {
	switch cfg.Kind {
	case KindDryRun:
		d := NewDryRun(cfg.DryRunPrinters)
		return &Backend{Kind: KindDryRun, Renderer: d, Lister: d}, nil

	case KindCommand:
		cmd, err := NewCommand(cfg.PrintCommand)
		if err != nil {
			return nil, err
		}
		return &Backend{Kind: KindCommand, Renderer: cmd, Lister: platformLister()}, nil

	case KindAuto, "":
		b := &Backend{Kind: KindAuto, Lister: platformLister()}
		if fields := strings.Fields(cfg.PrintCommand); len(fields) > 0 {
			if _, err := exec.LookPath(fields[0]); err == nil {
				cmd, err := NewCommand(cfg.PrintCommand)
				if err != nil {
					return nil, err
				}
				b.Renderer = cmd
				return b, nil
			}
		}
		log.WithField("command", cfg.PrintCommand).Warn("print command not found, printing disabled")
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
}
