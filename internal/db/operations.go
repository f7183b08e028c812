package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrJobNotFound = errors.New("job not found in history")

// History persists finished jobs and printer status changes.
type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) DB() *sql.DB {
	return h.db
}

// RecordJob inserts a finished job, or updates it if it was recorded before.
func (h *History) RecordJob(ctx context.Context, r JobRecord) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx, UpsertJob,
		r.ID, r.PrinterName, r.Status, r.PaperWidth, r.Error,
		r.SubmittedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record job %d: %w", r.ID, err)
	}
	return nil
}

func (h *History) GetJob(ctx context.Context, id int64) (*JobRecord, error) {
	r := &JobRecord{}
	err := h.db.QueryRowContext(ctx, GetJobByID, id).Scan(
		&r.ID, &r.PrinterName, &r.Status, &r.PaperWidth, &r.Error, &r.SubmittedAt, &r.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return r, nil
}

// ListJobs returns matching jobs, most recently finished first.
func (h *History) ListJobs(ctx context.Context, f JobFilter) ([]*JobRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Printer != "" {
		where = append(where, "printer_name = ?")
		args = append(args, f.Printer)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := ListJobsBase
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY finished_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListJobsFinishedBefore returns jobs finished before cutoff, oldest first.
func (h *History) ListJobsFinishedBefore(ctx context.Context, cutoff time.Time) ([]*JobRecord, error) {
	rows, err := h.db.QueryContext(ctx, ListJobsFinishedBefore, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for archival: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*JobRecord, error) {
	var jobs []*JobRecord
	for rows.Next() {
		r := &JobRecord{}
		if err := rows.Scan(&r.ID, &r.PrinterName, &r.Status, &r.PaperWidth, &r.Error, &r.SubmittedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, r)
	}
	return jobs, rows.Err()
}

func (h *History) Counts(ctx context.Context) (*JobCounts, error) {
	rows, err := h.db.QueryContext(ctx, CountJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := &JobCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts.Total += n
		switch status {
		case "completed":
			counts.Completed = n
		case "failed":
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

func (h *History) RecordPrinterStatus(ctx context.Context, printer string, status int, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := h.db.ExecContext(ctx, InsertPrinterStatus, printer, status, at.UTC()); err != nil {
		return fmt.Errorf("failed to record printer status: %w", err)
	}
	return nil
}

func (h *History) ListPrinterStatus(ctx context.Context, printer string, limit int) ([]*PrinterStatusRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := h.db.QueryContext(ctx, ListPrinterStatus, printer, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list printer status: %w", err)
	}
	defer rows.Close()

	var records []*PrinterStatusRecord
	for rows.Next() {
		r := &PrinterStatusRecord{}
		if err := rows.Scan(&r.ID, &r.PrinterName, &r.Status, &r.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer status: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteJobs removes the given ids and records which archive file now holds
// them, in one transaction.
func (h *History) DeleteJobs(ctx context.Context, ids []int64, archiveFile string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, DeleteJob, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete job %d: %w", id, err)
		}
		if archiveFile == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, InsertArchiveJob, id, archiveFile); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record archived job %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (h *History) CountArchivedJobs(ctx context.Context, archiveFile string) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, CountArchiveJobs, archiveFile).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count archived jobs: %w", err)
	}
	return n, nil
}
