package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printbridge/internal/control"
	"github.com/orrn/printbridge/internal/settings"
)

type SettingsHandler struct {
	channel   *control.Channel
	version   string
	defaultIP string
	rawPort   int
}

type StatusResponse struct {
	Running          bool   `json:"running"`
	Version          string `json:"version"`
	Port             int    `json:"port"`
	IP               string `json:"ip"`
	PrinterIPDefault string `json:"printer_ip_default"`
	PrinterRawPort   int    `json:"printer_raw_port"`
}

type ChangePortRequest struct {
	Port int `json:"port" binding:"required,min=1,max=65535"`
}

type AutoLaunchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func NewSettingsHandler(channel *control.Channel, version, defaultIP string, rawPort int) *SettingsHandler {
	return &SettingsHandler{
		channel:   channel,
		version:   version,
		defaultIP: defaultIP,
		rawPort:   rawPort,
	}
}

func (h *SettingsHandler) GetStatus(c *gin.Context) {
	status := h.channel.ServerStatus()
	c.JSON(http.StatusOK, StatusResponse{
		Running:          status.Running,
		Version:          h.version,
		Port:             status.Port,
		IP:               control.LocalIP(),
		PrinterIPDefault: h.defaultIP,
		PrinterRawPort:   h.rawPort,
	})
}

func (h *SettingsHandler) GetServerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.channel.ServerStatus())
}

func (h *SettingsHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.channel.Config())
}

func (h *SettingsHandler) SaveConfig(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid config"})
		return
	}

	c.JSON(http.StatusOK, h.channel.SaveConfig(patch))
}

func (h *SettingsHandler) ChangePort(c *gin.Context) {
	var req ChangePortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "port must be between 1 and 65535"})
		return
	}

	c.JSON(http.StatusOK, h.channel.ChangePort(c.Request.Context(), req.Port))
}

func (h *SettingsHandler) GetAutoLaunch(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.channel.AutoLaunchEnabled()})
}

func (h *SettingsHandler) SetAutoLaunch(c *gin.Context) {
	var req AutoLaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "enabled is required"})
		return
	}

	c.JSON(http.StatusOK, h.channel.SetAutoLaunch(*req.Enabled))
}

func (h *SettingsHandler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/status", h.GetStatus)
}

func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/server-status", h.GetServerStatus)
	r.GET("/config", h.GetConfig)
	r.PUT("/config", h.SaveConfig)
	r.POST("/port", h.ChangePort)
	r.GET("/autolaunch", h.GetAutoLaunch)
	r.PUT("/autolaunch", h.SetAutoLaunch)
}
