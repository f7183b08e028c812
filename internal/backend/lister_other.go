//go:build !windows

package backend

import (
	"github.com/orrn/printbridge/internal/core"
)

func platformLister() core.PrinterLister {
	return NewCUPSLister()
}
