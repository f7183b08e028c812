//go:build windows

package backend

import (
	"context"
	"fmt"

	"github.com/alexbrainman/printer"

	"github.com/orrn/printbridge/internal/core"
)

// WindowsLister enumerates printers through the Windows spooler.
type WindowsLister struct{}

func NewWindowsLister() *WindowsLister {
	return &WindowsLister{}
}

func (WindowsLister) ListPrinters(ctx context.Context) ([]core.PrinterInfo, error) {
	names, err := printer.ReadNames()
	if err != nil {
		return nil, fmt.Errorf("failed to read printer names: %w", err)
	}
	defaultName, _ := printer.Default()

	out := make([]core.PrinterInfo, 0, len(names))
	for _, name := range names {
		out = append(out, core.PrinterInfo{
			Name:        name,
			DisplayName: name,
			IsDefault:   name == defaultName,
			Status:      windowsStatus(name),
		})
	}
	return out, nil
}

// windowsStatus reports idle when the spooler can open the printer.
func windowsStatus(name string) int {
	p, err := printer.Open(name)
	if err != nil {
		return core.PrinterStatusStopped
	}
	p.Close()
	return core.PrinterStatusIdle
}

func platformLister() core.PrinterLister {
	return NewWindowsLister()
}
