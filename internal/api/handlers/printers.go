package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
)

const errNoBackend = "No printer backend available"

// Cutter sends the cut sequence to a printer. Failures are logged by the
// cutter and never reach the caller.
type Cutter interface {
	SendCut(ctx context.Context, ip string, port int)
}

type PrinterHandler struct {
	lister    core.PrinterLister
	channel   *control.Channel
	cutter    Cutter
	defaultIP string
	rawPort   int
}

func NewPrinterHandler(lister core.PrinterLister, channel *control.Channel, cutter Cutter, defaultIP string, rawPort int) *PrinterHandler {
	return &PrinterHandler{
		lister:    lister,
		channel:   channel,
		cutter:    cutter,
		defaultIP: defaultIP,
		rawPort:   rawPort,
	}
}

type CutRequest struct {
	PrinterIP string `json:"printerIp"`
}

// ListPrinters handles the public GET /printers, which reports backend
// failures instead of hiding them.
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errNoBackend})
		return
	}

	printers, err := h.lister.ListPrinters(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to list printers")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if printers == nil {
		printers = []core.PrinterInfo{}
	}
	for i := range printers {
		if printers[i].DisplayName == "" {
			printers[i].DisplayName = printers[i].Name
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "printers": printers})
}

// GetPrinters is the command-channel variant; it never fails.
func (h *PrinterHandler) GetPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, h.channel.Printers(c.Request.Context()))
}

// Cut sends the cut command immediately, outside any job.
func (h *PrinterHandler) Cut(c *gin.Context) {
	var req CutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	ip := req.PrinterIP
	if ip == "" {
		ip = h.defaultIP
	}

	h.cutter.SendCut(c.Request.Context(), ip, h.rawPort)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Cut sent to %s:%d", ip, h.rawPort),
	})
}

func (h *PrinterHandler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/printers", h.ListPrinters)
	r.POST("/cut", h.Cut)
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printers", h.GetPrinters)
}
