package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/core"
)

const (
	eventBuffer       = 64
	keepAliveInterval = 30 * time.Second
)

type EventHandler struct {
	channel   *control.Channel
	keepAlive time.Duration
}

type NotificationRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message"`
}

func NewEventHandler(channel *control.Channel) *EventHandler {
	return &EventHandler{
		channel:   channel,
		keepAlive: keepAliveInterval,
	}
}

// Stream pushes engine events as server-sent events until the client goes
// away. A slow client loses events rather than stalling the publisher.
func (h *EventHandler) Stream(c *gin.Context) {
	events := make(chan core.Event, eventBuffer)
	unsubscribe := h.channel.Subscribe(core.SubscriberFunc(func(e core.Event) {
		if e.Kind == core.EventJobFinished {
			return
		}
		select {
		case events <- e:
		default:
			log.WithField("kind", e.Kind).Debug("event stream full, dropping event")
		}
	}))
	defer unsubscribe()

	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(string(core.EventQueueUpdated), h.channel.PrintQueue())
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-events:
			c.SSEvent(string(e.Kind), eventPayload(e))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

func eventPayload(e core.Event) any {
	switch e.Kind {
	case core.EventQueueUpdated:
		return e.Jobs
	case core.EventPrinterStatusChanged:
		return e.Printer
	case core.EventNotification:
		return e.Notification
	default:
		return e
	}
}

func (h *EventHandler) ShowNotification(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "title is required"})
		return
	}

	c.JSON(http.StatusOK, h.channel.ShowNotification(req.Title, req.Message))
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events", h.Stream)
	r.POST("/notifications", h.ShowNotification)
}
