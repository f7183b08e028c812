package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
	"github.com/orrn/printbridge/internal/db"
)

const statusHistoryLimit = 20

// StatusSource is the printer status cache kept by the monitor.
type StatusSource interface {
	Statuses() map[string]int
}

// HistoryStats reads aggregate job history and printer status changes.
type HistoryStats interface {
	Counts(ctx context.Context) (*db.JobCounts, error)
	ListPrinterStatus(ctx context.Context, printer string, limit int) ([]*db.PrinterStatusRecord, error)
}

type DashboardStats struct {
	QueueDepth      int           `json:"queue_depth"`
	RecentCompleted int           `json:"recent_completed"`
	RecentFailed    int           `json:"recent_failed"`
	TotalPrinters   int           `json:"total_printers"`
	OnlinePrinters  int           `json:"online_printers"`
	StoppedPrinters int           `json:"stopped_printers"`
	History         *db.JobCounts `json:"history,omitempty"`
}

type PrinterWithStatus struct {
	Name        string `json:"name"`
	Status      int    `json:"status"`
	StatusLabel string `json:"status_label"`
	CanPrint    bool   `json:"can_print"`
}

type DashboardData struct {
	Stats    DashboardStats      `json:"stats"`
	Printers []PrinterWithStatus `json:"printers"`
	Jobs     []core.PrintJob     `json:"jobs"`
}

type DashboardHandler struct {
	channel  *control.Channel
	statuses StatusSource
	history  HistoryStats
}

// NewDashboardHandler builds the handler. history may be nil when job
// history is disabled.
func NewDashboardHandler(channel *control.Channel, statuses StatusSource, history HistoryStats) *DashboardHandler {
	return &DashboardHandler{
		channel:  channel,
		statuses: statuses,
		history:  history,
	}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	jobs := h.channel.PrintQueue()
	printers := h.printerStatuses()

	data := DashboardData{
		Stats:    h.stats(c.Request.Context(), jobs, printers),
		Printers: printers,
		Jobs:     jobs,
	}

	c.JSON(http.StatusOK, data)
}

func (h *DashboardHandler) stats(ctx context.Context, jobs []core.PrintJob, printers []PrinterWithStatus) DashboardStats {
	stats := DashboardStats{TotalPrinters: len(printers)}

	for _, job := range jobs {
		switch job.Status {
		case core.JobStatusPending:
			stats.QueueDepth++
		case core.JobStatusCompleted:
			stats.RecentCompleted++
		case core.JobStatusFailed:
			stats.RecentFailed++
		}
	}

	for _, p := range printers {
		switch p.Status {
		case core.PrinterStatusIdle, core.PrinterStatusProcessing:
			stats.OnlinePrinters++
		case core.PrinterStatusStopped:
			stats.StoppedPrinters++
		}
	}

	if h.history != nil {
		counts, err := h.history.Counts(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to count job history")
		} else {
			stats.History = counts
		}
	}

	return stats
}

func (h *DashboardHandler) printerStatuses() []PrinterWithStatus {
	statuses := h.statuses.Statuses()

	printers := make([]PrinterWithStatus, 0, len(statuses))
	for name, status := range statuses {
		printers = append(printers, PrinterWithStatus{
			Name:        name,
			Status:      status,
			StatusLabel: statusLabel(status),
			CanPrint:    status == core.PrinterStatusIdle || status == core.PrinterStatusProcessing,
		})
	}

	sort.Slice(printers, func(i, j int) bool {
		return printers[i].Name < printers[j].Name
	})

	return printers
}

// GetPrinterStatusHistory returns the recorded status changes of one printer.
func (h *DashboardHandler) GetPrinterStatusHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []*db.PrinterStatusRecord{})
		return
	}

	records, err := h.history.ListPrinterStatus(c.Request.Context(), c.Param("name"), statusHistoryLimit)
	if err != nil {
		log.WithError(err).Error("failed to list printer status history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list printer status history"})
		return
	}
	if records == nil {
		records = []*db.PrinterStatusRecord{}
	}

	c.JSON(http.StatusOK, records)
}

func statusLabel(status int) string {
	switch status {
	case core.PrinterStatusIdle:
		return "idle"
	case core.PrinterStatusProcessing:
		return "printing"
	case core.PrinterStatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Dashboard)
	r.GET("/dashboard/printers/:name", h.GetPrinterStatusHistory)
}
