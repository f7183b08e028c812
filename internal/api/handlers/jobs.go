package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
	"github.com/orrn/printbridge/internal/db"
)

const maxPrintBody = 50 << 20

// Printer runs a print job to completion.
type Printer interface {
	Print(ctx context.Context, req core.PrintRequest) (core.PrintResult, error)
}

type JobHandler struct {
	printer Printer
	channel *control.Channel
}

func NewJobHandler(printer Printer, channel *control.Channel) *JobHandler {
	return &JobHandler{
		printer: printer,
		channel: channel,
	}
}

type TestPrintRequest struct {
	PrinterName string `json:"printerName" binding:"required"`
	PaperWidth  int    `json:"paperWidth"`
}

type ListHistoryQuery struct {
	Printer string `form:"printer"`
	Status  string `form:"status"`
	Limit   int    `form:"limit" binding:"min=0,max=1000"`
}

// Print handles POST /print and answers once the job has finished.
func (h *JobHandler) Print(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPrintBody)

	var req core.PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.printer.Print(c.Request.Context(), req)
	if err != nil {
		writePrintError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *JobHandler) TestPrint(c *gin.Context) {
	var req TestPrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "printerName is required"})
		return
	}

	result, err := h.channel.TestPrint(c.Request.Context(), req.PrinterName, req.PaperWidth)
	if err != nil {
		writePrintError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *JobHandler) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.channel.PrintQueue())
}

func (h *JobHandler) RemoveJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid job id"})
		return
	}

	c.JSON(http.StatusOK, h.channel.RemoveJob(id))
}

func (h *JobHandler) ClearFailedJobs(c *gin.Context) {
	removed := h.channel.ClearFailedJobs()
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func (h *JobHandler) ListHistory(c *gin.Context) {
	var query ListHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	records, err := h.channel.History(c.Request.Context(), db.JobFilter{
		Printer: query.Printer,
		Status:  query.Status,
		Limit:   query.Limit,
	})
	if err != nil {
		log.WithError(err).Error("failed to list job history")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list job history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": records, "count": len(records)})
}

// writePrintError answers 400 for validation errors and 500 otherwise.
func writePrintError(c *gin.Context, err error) {
	var validation *core.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validation.Error()})
	case errors.Is(err, core.ErrBackendUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errNoBackend})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

func (h *JobHandler) RegisterPublicRoutes(r gin.IRoutes) {
	r.POST("/print", h.Print)
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/test-print", h.TestPrint)
	r.GET("/queue", h.GetQueue)
	r.DELETE("/queue/:id", h.RemoveJob)
	r.POST("/queue/clear-failed", h.ClearFailedJobs)
	r.GET("/history", h.ListHistory)
}
