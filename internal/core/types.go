package core

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type PrintJob struct {
	ID          int64     `json:"id"`
	PrinterName string    `json:"printerName"`
	Status      JobStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	PaperWidth  int       `json:"paperWidth"`
	Error       string    `json:"error,omitempty"`
}

// PrintRequest is a request to print HTML content or a URL. A zero
// PaperWidth means "not supplied".
type PrintRequest struct {
	PrinterName string `json:"printerName"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url,omitempty"`
	PaperWidth  int    `json:"paperWidth,omitempty"`
}

type PrintResult struct {
	JobID   int64  `json:"jobId"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// IPP printer-state values as reported by the enumeration backends.
const (
	PrinterStatusUnknown    = 0
	PrinterStatusIdle       = 3
	PrinterStatusProcessing = 4
	PrinterStatusStopped    = 5
)

type PrinterInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	IsDefault   bool   `json:"isDefault"`
	Status      int    `json:"status"`
}

type PrinterStatusChange struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
}

type Notification struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}
