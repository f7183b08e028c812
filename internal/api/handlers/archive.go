package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/archive"
)

// Archiver is the history archive as seen by the API.
type Archiver interface {
	ListArchives(ctx context.Context) ([]*archive.ArchiveFile, error)
	RunArchive(ctx context.Context) (int, error)
	GetArchivePath() string
}

type ArchiveHandler struct {
	archiver Archiver
}

func NewArchiveHandler(archiver Archiver) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver}
}

type ArchiveListResponse struct {
	Archives []*archive.ArchiveFile `json:"archives"`
	Count    int                    `json:"count"`
}

type TriggerArchiveResponse struct {
	Message  string `json:"message"`
	Archived int    `json:"archived"`
	Error    string `json:"error,omitempty"`
}

func (h *ArchiveHandler) ListArchives(c *gin.Context) {
	archives, err := h.archiver.ListArchives(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to list archives")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list archives"})
		return
	}
	if archives == nil {
		archives = []*archive.ArchiveFile{}
	}

	c.JSON(http.StatusOK, ArchiveListResponse{
		Archives: archives,
		Count:    len(archives),
	})
}

func (h *ArchiveHandler) TriggerArchive(c *gin.Context) {
	archived, err := h.archiver.RunArchive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, TriggerArchiveResponse{
			Message:  "archive completed with errors",
			Archived: archived,
			Error:    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, TriggerArchiveResponse{
		Message:  "archive completed successfully",
		Archived: archived,
	})
}

func (h *ArchiveHandler) DownloadArchive(c *gin.Context) {
	filename := c.Param("filename")
	if filename != filepath.Base(filename) || !strings.HasPrefix(filename, "archive_") || !strings.HasSuffix(filename, ".db") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid archive name"})
		return
	}

	path := filepath.Join(h.archiver.GetArchivePath(), filename)
	c.FileAttachment(path, filename)
}

func (h *ArchiveHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/archives", h.ListArchives)
	r.POST("/archives/run", h.TriggerArchive)
	r.GET("/archives/:filename", h.DownloadArchive)
}
