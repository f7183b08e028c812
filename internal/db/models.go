package db

import (
	"time"
)

type JobRecord struct {
	ID          int64     `json:"id"`
	PrinterName string    `json:"printer_name"`
	Status      string    `json:"status"`
	PaperWidth  int       `json:"paper_width"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type PrinterStatusRecord struct {
	ID          int64     `json:"id"`
	PrinterName string    `json:"printer_name"`
	Status      int       `json:"status"`
	ObservedAt  time.Time `json:"observed_at"`
}

// JobFilter narrows ListJobs. Zero values match everything; Limit defaults
// to 100.
type JobFilter struct {
	Printer string
	Status  string
	Limit   int
}

type JobCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
