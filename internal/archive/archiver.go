package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/db"
)

// Archiver moves old job history rows into monthly sqlite files.
type Archiver struct {
	history     *db.History
	archivePath string
	archiveDays int
	now         func() time.Time
	stopCh      chan struct{}
	once        sync.Once
	mu          sync.Mutex
}

type ArchiveFile struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	JobCount  int       `json:"job_count"`
	DateRange string    `json:"date_range"`
}

type ArchiveConfig struct {
	ArchivePath string
	ArchiveDays int
}

func NewArchiver(history *db.History, config ArchiveConfig) (*Archiver, error) {
	if config.ArchivePath == "" {
		config.ArchivePath = "./data/archives"
	}
	if config.ArchiveDays <= 0 {
		config.ArchiveDays = 30
	}

	if err := os.MkdirAll(config.ArchivePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Archiver{
		history:     history,
		archivePath: config.ArchivePath,
		archiveDays: config.ArchiveDays,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}, nil
}

func (a *Archiver) Start() {
	go a.runDailyArchive()
}

func (a *Archiver) Stop() {
	a.once.Do(func() {
		close(a.stopCh)
	})
}

func (a *Archiver) runDailyArchive() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			n, err := a.RunArchive(context.Background())
			if err != nil {
				log.WithError(err).Error("history archive failed")
				continue
			}
			if n > 0 {
				log.WithField("jobs", n).Info("archived job history")
			}
		}
	}
}

// RunArchive moves jobs finished more than archiveDays ago into the archive
// file for the current month and returns how many were moved.
func (a *Archiver) RunArchive(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().AddDate(0, 0, -a.archiveDays)

	jobs, err := a.history.ListJobsFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to get jobs for archival: %w", err)
	}

	if len(jobs) == 0 {
		return 0, nil
	}

	filename := fmt.Sprintf("archive_%s.db", a.now().Format("2006_01"))
	archiveDB, err := a.openOrCreateArchiveDB(filepath.Join(a.archivePath, filename))
	if err != nil {
		return 0, fmt.Errorf("failed to create archive database: %w", err)
	}
	defer archiveDB.Close()

	tx, err := archiveDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}

	ids := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		if err := insertJobToArchive(ctx, tx, job); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert job to archive: %w", err)
		}
		ids = append(ids, job.ID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO archive_metadata (id, archived_at, source_database)
		VALUES (1, ?, 'main')
	`, a.now().UTC()); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to update archive metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	if err := a.history.DeleteJobs(ctx, ids, filename); err != nil {
		return 0, fmt.Errorf("failed to delete archived jobs: %w", err)
	}

	return len(ids), nil
}

func (a *Archiver) openOrCreateArchiveDB(path string) (*sql.DB, error) {
	archiveDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = archiveDB.Exec(`
		CREATE TABLE IF NOT EXISTS job_history (
			id INTEGER PRIMARY KEY,
			printer_name TEXT NOT NULL,
			status TEXT NOT NULL,
			paper_width INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			submitted_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS archive_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			archived_at DATETIME,
			source_database TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_archive_jobs_finished_at ON job_history(finished_at);
	`)
	if err != nil {
		archiveDB.Close()
		return nil, err
	}

	return archiveDB, nil
}

func insertJobToArchive(ctx context.Context, tx *sql.Tx, job *db.JobRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO job_history (id, printer_name, status, paper_width, error_message, submitted_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.PrinterName, job.Status, job.PaperWidth, job.Error, job.SubmittedAt.UTC(), job.FinishedAt.UTC())
	return err
}

// ListArchives returns the archive files, oldest month first.
func (a *Archiver) ListArchives(ctx context.Context) ([]*ArchiveFile, error) {
	files, err := os.ReadDir(a.archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []*ArchiveFile
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, "archive_") || !strings.HasSuffix(name, ".db") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		archive := &ArchiveFile{
			Filename:  name,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			DateRange: strings.TrimSuffix(strings.TrimPrefix(name, "archive_"), ".db"),
		}

		if n, err := a.history.CountArchivedJobs(ctx, name); err == nil {
			archive.JobCount = n
		}

		archives = append(archives, archive)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Filename < archives[j].Filename
	})

	return archives, nil
}

func (a *Archiver) GetArchivePath() string {
	return a.archivePath
}
