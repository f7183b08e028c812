package backend

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/orrn/printbridge/internal/core"
)

// CUPSLister enumerates printers with `lpstat -p -d`.
type CUPSLister struct {
	run runFunc
}

func NewCUPSLister() *CUPSLister {
	return &CUPSLister{run: execRun}
}

func (l *CUPSLister) ListPrinters(ctx context.Context) ([]core.PrinterInfo, error) {
	out, err := l.run(ctx, "lpstat", "-p", "-d")
	if err != nil {
		if strings.Contains(string(out), "No destinations added") {
			return []core.PrinterInfo{}, nil
		}
		return nil, fmt.Errorf("lpstat: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseLpstat(string(out)), nil
}

// parseLpstat reads lines such as
//
//	printer Kitchen is idle.  enabled since ...
//	printer Bar now printing Bar-12.  enabled since ...
//	printer Office disabled since ... -
//	system default destination: Kitchen
func parseLpstat(out string) []core.PrinterInfo {
	printers := []core.PrinterInfo{}
	index := map[string]int{}
	defaultName := ""

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if rest, ok := strings.CutPrefix(line, "system default destination:"); ok {
			defaultName = strings.TrimSpace(rest)
			continue
		}

		rest, ok := strings.CutPrefix(line, "printer ")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			continue
		}

		name := fields[0]
		index[name] = len(printers)
		printers = append(printers, core.PrinterInfo{
			Name:        name,
			DisplayName: name,
			Status:      lpstatStatus(fields[1:]),
		})
	}

	if i, ok := index[defaultName]; ok {
		printers[i].IsDefault = true
	}
	return printers
}

func lpstatStatus(words []string) int {
	switch {
	case len(words) >= 2 && words[0] == "is" && strings.HasPrefix(words[1], "idle"):
		return core.PrinterStatusIdle
	case len(words) >= 2 && words[0] == "now" && words[1] == "printing":
		return core.PrinterStatusProcessing
	case words[0] == "disabled":
		return core.PrinterStatusStopped
	default:
		return core.PrinterStatusUnknown
	}
}
