package db

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/core"
)

const recorderQueueSize = 256

// Recorder is a bus subscriber that writes finished jobs and printer status
// changes to History on its own goroutine. Events are dropped when the
// buffer is full, and write failures are only logged.
type Recorder struct {
	history *History
	events  chan core.Event
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRecorder(history *History) *Recorder {
	return &Recorder{
		history: history,
		events:  make(chan core.Event, recorderQueueSize),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop drains buffered events and returns once they are written.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) HandleEvent(e core.Event) {
	switch e.Kind {
	case core.EventJobFinished, core.EventPrinterStatusChanged:
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	select {
	case r.events <- e:
	default:
		log.WithField("kind", e.Kind).Warn("history queue full, dropping event")
	}
}

func (r *Recorder) loop() {
	defer r.wg.Done()

	for e := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		r.write(ctx, e)
		cancel()
	}
}

func (r *Recorder) write(ctx context.Context, e core.Event) {
	switch e.Kind {
	case core.EventJobFinished:
		if e.Job == nil {
			return
		}
		err := r.history.RecordJob(ctx, JobRecord{
			ID:          e.Job.ID,
			PrinterName: e.Job.PrinterName,
			Status:      string(e.Job.Status),
			PaperWidth:  e.Job.PaperWidth,
			Error:       e.Job.Error,
			SubmittedAt: e.Job.Timestamp,
			FinishedAt:  e.Time,
		})
		if err != nil {
			log.WithError(err).WithField("job_id", e.Job.ID).Error("failed to write job history")
		}

	case core.EventPrinterStatusChanged:
		if e.Printer == nil {
			return
		}
		if err := r.history.RecordPrinterStatus(ctx, e.Printer.Name, e.Printer.Status, e.Time); err != nil {
			log.WithError(err).WithField("printer", e.Printer.Name).Error("failed to write printer status")
		}
	}
}
