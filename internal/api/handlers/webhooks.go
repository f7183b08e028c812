package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/webhook"
)

// Webhooks is the webhook sender as seen by the API.
type Webhooks interface {
	Endpoints() []config.WebhookEndpoint
	SendTest(name string) error
}

type WebhookHandler struct {
	webhooks Webhooks
}

type WebhookResponse struct {
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type TestWebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewWebhookHandler(webhooks Webhooks) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	endpoints := h.webhooks.Endpoints()

	responses := make([]WebhookResponse, 0, len(endpoints))
	for _, ep := range endpoints {
		events := ep.Events
		if events == nil {
			events = []string{}
		}
		responses = append(responses, WebhookResponse{Name: ep.Name, URL: ep.URL, Events: events})
	}

	c.JSON(http.StatusOK, responses)
}

func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	err := h.webhooks.SendTest(c.Param("name"))
	switch {
	case errors.Is(err, webhook.ErrEndpointNotFound):
		c.JSON(http.StatusNotFound, TestWebhookResponse{Success: false, Message: "Webhook not found"})
	case err != nil:
		c.JSON(http.StatusOK, TestWebhookResponse{Success: false, Message: err.Error()})
	default:
		c.JSON(http.StatusOK, TestWebhookResponse{Success: true, Message: "Webhook delivered"})
	}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/webhooks", h.ListWebhooks)
	r.POST("/webhooks/:name/test", h.TestWebhook)
}
