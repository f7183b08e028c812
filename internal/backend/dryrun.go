package backend

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/core"
)

// DryRun accepts every job without printing and lists a fixed set of
// printers.
type DryRun struct {
	printers []string

	mu      sync.Mutex
	printed []core.PrintOptions
}

func NewDryRun(printers []string) *DryRun {
	return &DryRun{printers: printers}
}

func (d *DryRun) Open(ctx context.Context) (core.Session, error) {
	return &dryRunSession{d: d}, nil
}

func (d *DryRun) ListPrinters(ctx context.Context) ([]core.PrinterInfo, error) {
	out := make([]core.PrinterInfo, 0, len(d.printers))
	for i, name := range d.printers {
		out = append(out, core.PrinterInfo{
			Name:        name,
			DisplayName: name,
			IsDefault:   i == 0,
			Status:      core.PrinterStatusIdle,
		})
	}
	return out, nil
}

// Printed returns the options of every job printed so far.
func (d *DryRun) Printed() []core.PrintOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]core.PrintOptions(nil), d.printed...)
}

type dryRunSession struct {
	d   *DryRun
	src core.Source
}

func (s *dryRunSession) Load(ctx context.Context, src core.Source) error {
	s.src = src
	return nil
}

func (s *dryRunSession) Print(ctx context.Context, opts core.PrintOptions) error {
	s.d.mu.Lock()
	s.d.printed = append(s.d.printed, opts)
	s.d.mu.Unlock()

	log.WithFields(log.Fields{
		"printer":     opts.Printer,
		"paper_width": opts.PaperWidth,
		"url":         s.src.URL,
		"bytes":       len(s.src.HTML),
	}).Info("dry run print")
	return nil
}

func (s *dryRunSession) Close() error {
	return nil
}
