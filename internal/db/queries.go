package db

const (
	UpsertJob = `
		INSERT INTO job_history (id, printer_name, status, paper_width, error_message, submitted_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			finished_at = excluded.finished_at
	`

	GetJobByID = `
		SELECT id, printer_name, status, paper_width, error_message, submitted_at, finished_at
		FROM job_history WHERE id = ?
	`

	ListJobsBase = `
		SELECT id, printer_name, status, paper_width, error_message, submitted_at, finished_at
		FROM job_history
	`

	ListJobsFinishedBefore = `
		SELECT id, printer_name, status, paper_width, error_message, submitted_at, finished_at
		FROM job_history WHERE finished_at < ?
		ORDER BY finished_at ASC
	`

	DeleteJob = `DELETE FROM job_history WHERE id = ?`

	CountJobsByStatus = `SELECT status, COUNT(*) FROM job_history GROUP BY status`
)

const (
	InsertPrinterStatus = `
		INSERT INTO printer_status_log (printer_name, status, observed_at)
		VALUES (?, ?, ?)
	`

	ListPrinterStatus = `
		SELECT id, printer_name, status, observed_at
		FROM printer_status_log WHERE printer_name = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`
)

const (
	InsertArchiveJob = `
		INSERT OR REPLACE INTO archive_jobs (original_job_id, archive_file)
		VALUES (?, ?)
	`

	CountArchiveJobs = `SELECT COUNT(*) FROM archive_jobs WHERE archive_file = ?`
)
