package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/config"
)

const (
	DefaultPaperWidth  = 80
	DefaultPrinterIP   = "192.168.68.100"
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultCutDelay    = 1200 * time.Millisecond
)

type ManagerConfig struct {
	SettleDelay       time.Duration
	CutDelay          time.Duration
	DefaultPaperWidth int
	CutSpacingMM      int
	RecentLimit       int
	DefaultPrinterIP  string
	RawPort           int
	SerializeJobs     bool
}

func ManagerConfigFrom(cfg *config.Config) ManagerConfig {
	return ManagerConfig{
		SettleDelay:       cfg.Jobs.SettleDelay,
		CutDelay:          cfg.Jobs.CutDelay,
		DefaultPaperWidth: cfg.Jobs.DefaultPaperWidth,
		CutSpacingMM:      cfg.Jobs.CutSpacingMM,
		RecentLimit:       cfg.Jobs.RecentLimit,
		DefaultPrinterIP:  cfg.Printers.DefaultIP,
		RawPort:           cfg.Printers.RawPort,
		SerializeJobs:     cfg.Printers.SerializeJobs,
	}
}

// Manager drives each print job from submission through rendering, printing
// and the follow-up cut.
type Manager struct {
	cfg      ManagerConfig
	renderer Renderer
	settings Settings
	cutter   Cutter
	bus      *Bus
	queue    *JobQueue
	ids      *idGenerator
	locks    *printerLocks
	now      func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithClock replaces time.Now for job ids and timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(cfg ManagerConfig, renderer Renderer, settings Settings, cutter Cutter, bus *Bus, opts ...ManagerOption) *Manager {
	if cfg.DefaultPaperWidth < 1 {
		cfg.DefaultPaperWidth = DefaultPaperWidth
	}
	if cfg.DefaultPrinterIP == "" {
		cfg.DefaultPrinterIP = DefaultPrinterIP
	}
	if cfg.RawPort == 0 {
		cfg.RawPort = DefaultRawPort
	}

	m := &Manager{
		cfg:      cfg,
		renderer: renderer,
		settings: settings,
		cutter:   cutter,
		bus:      bus,
		queue:    NewJobQueue(cfg.RecentLimit),
		locks:    newPrinterLocks(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ids = newIDGenerator(m.now)

	return m
}

// Ticket resolves once the job reaches a terminal state.
type Ticket struct {
	JobID int64

	done   chan struct{}
	result PrintResult
	err    error
}

func newTicket(id int64) *Ticket {
	return &Ticket{JobID: id, done: make(chan struct{})}
}

func (t *Ticket) resolve(result PrintResult, err error) {
	t.result = result
	t.err = err
	close(t.done)
}

func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// does not stop the job.
func (t *Ticket) Wait(ctx context.Context) (PrintResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return PrintResult{}, ctx.Err()
	}
}

// Submit validates the request, records a pending job and starts its
// pipeline. The pipeline runs detached from ctx cancellation.
func (m *Manager) Submit(ctx context.Context, req PrintRequest) (*Ticket, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if m.renderer == nil {
		return nil, ErrBackendUnavailable
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.wg.Add(1)
	m.mu.Unlock()

	width := m.resolvePaperWidth(req.PrinterName, req.PaperWidth)

	job := PrintJob{
		ID:          m.ids.next(),
		PrinterName: req.PrinterName,
		Status:      JobStatusPending,
		Timestamp:   m.now(),
		PaperWidth:  width,
	}
	m.queue.Append(job)
	m.publishQueue()

	log.WithFields(log.Fields{
		"job_id":      job.ID,
		"printer":     job.PrinterName,
		"paper_width": width,
	}).Info("print job submitted")

	ticket := newTicket(job.ID)
	go m.run(context.WithoutCancel(ctx), job, req, ticket)

	return ticket, nil
}

// Print submits the request and waits for its outcome.
func (m *Manager) Print(ctx context.Context, req PrintRequest) (PrintResult, error) {
	ticket, err := m.Submit(ctx, req)
	if err != nil {
		return PrintResult{}, err
	}
	return ticket.Wait(ctx)
}

// TestPrint prints the built-in test page. A width configured for the
// printer takes precedence over the supplied one.
func (m *Manager) TestPrint(ctx context.Context, printer string, paperWidth int) (PrintResult, error) {
	width := paperWidth
	if configured, ok := m.configuredWidth(printer); ok {
		width = configured
	}
	if width <= 0 {
		width = m.cfg.DefaultPaperWidth
	}

	page, err := TestPage(printer, width, m.cfg.CutSpacingMM, m.now())
	if err != nil {
		return PrintResult{}, err
	}

	return m.Print(ctx, PrintRequest{
		PrinterName: printer,
		Content:     page,
		PaperWidth:  width,
	})
}

func validate(req PrintRequest) error {
	if req.PrinterName == "" {
		return &ValidationError{Field: "printerName", Reason: "is required"}
	}
	if req.Content == "" && req.URL == "" {
		return &ValidationError{Field: "content", Reason: "or url is required"}
	}
	if req.PaperWidth < 0 {
		return &ValidationError{Field: "paperWidth", Reason: "must be positive"}
	}
	return nil
}

func (m *Manager) configuredWidth(printer string) (int, bool) {
	if m.settings == nil {
		return 0, false
	}
	return m.settings.PaperWidth(printer)
}

// resolvePaperWidth applies request, then per-printer setting, then default.
func (m *Manager) resolvePaperWidth(printer string, requested int) int {
	if requested > 0 {
		return requested
	}
	if w, ok := m.configuredWidth(printer); ok {
		return w
	}
	return m.cfg.DefaultPaperWidth
}

func (m *Manager) resolvePrinterIP(printer string) string {
	if m.settings != nil {
		if ip, ok := m.settings.PrinterIP(printer); ok {
			return ip
		}
	}
	return m.cfg.DefaultPrinterIP
}

func (m *Manager) run(ctx context.Context, job PrintJob, req PrintRequest, ticket *Ticket) {
	defer m.wg.Done()

	if m.cfg.SerializeJobs {
		unlock := m.locks.lock(job.PrinterName)
		defer unlock()
	}

	logger := log.WithFields(log.Fields{
		"job_id":      job.ID,
		"printer":     job.PrinterName,
		"paper_width": job.PaperWidth,
	})

	src := Source{URL: req.URL}
	if req.URL == "" {
		src.HTML = AdjustContent(req.Content, job.PaperWidth, m.cfg.CutSpacingMM)
	}

	if err := m.render(ctx, src, job); err != nil {
		logger.WithError(err).Error("print job failed")
		ticket.resolve(PrintResult{JobID: job.ID}, m.fail(job, err))
		return
	}

	m.transition(job.ID, func() (PrintJob, bool) { return m.queue.Complete(job.ID) })
	logger.Info("print job completed")

	ticket.resolve(PrintResult{
		JobID:   job.ID,
		Success: true,
		Message: fmt.Sprintf("Printed on %dmm paper + cut (raw TCP)", job.PaperWidth),
	}, nil)

	m.scheduleCut(ctx, job.PrinterName)
}

// render drives one session: load, settle, print. The session is released
// on every path, and a panicking backend is reported as a failure.
func (m *Manager) render(ctx context.Context, src Source, job PrintJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()

	session, err := m.renderer.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open rendering session: %w", err)
	}
	defer session.Close()

	if err := session.Load(ctx, src); err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	time.Sleep(m.cfg.SettleDelay)

	return session.Print(ctx, PrintOptions{
		Printer:         job.PrinterName,
		PaperWidth:      job.PaperWidth,
		Silent:          true,
		PrintBackground: true,
		NoMargins:       true,
	})
}

func (m *Manager) fail(job PrintJob, cause error) *PrintError {
	reason := cause.Error()
	if reason == "" {
		reason = "Print failed"
	}

	m.transition(job.ID, func() (PrintJob, bool) { return m.queue.Fail(job.ID, reason) })

	m.bus.Publish(Event{
		Kind: EventNotification,
		Notification: &Notification{
			Title:    "Print Job Failed",
			Message:  fmt.Sprintf("Printer: %s\nPaper: %dmm\nError: %s", job.PrinterName, job.PaperWidth, reason),
			Critical: true,
		},
	})

	return &PrintError{
		Printer:    job.PrinterName,
		PaperWidth: job.PaperWidth,
		Reason:     reason,
		Err:        cause,
	}
}

// transition applies a terminal state change and publishes it. A job removed
// while in flight is left alone.
func (m *Manager) transition(id int64, apply func() (PrintJob, bool)) {
	updated, ok := apply()
	if !ok {
		log.WithField("job_id", id).Debug("job no longer pending, skipping transition")
		return
	}
	m.publishQueue()
	m.bus.Publish(Event{Kind: EventJobFinished, Job: &updated})
}

func (m *Manager) scheduleCut(ctx context.Context, printer string) {
	if m.cutter == nil {
		return
	}

	m.wg.Add(1)
	time.AfterFunc(m.cfg.CutDelay, func() {
		defer m.wg.Done()
		m.cutter.SendCut(ctx, m.resolvePrinterIP(printer), m.cfg.RawPort)
	})
}

func (m *Manager) publishQueue() {
	m.bus.Publish(Event{Kind: EventQueueUpdated, Jobs: m.queue.Recent()})
}

func (m *Manager) RecentJobs() []PrintJob {
	return m.queue.Recent()
}

func (m *Manager) Jobs() []PrintJob {
	return m.queue.Snapshot()
}

func (m *Manager) Job(id int64) (PrintJob, bool) {
	return m.queue.Get(id)
}

// RemoveJob drops a job from the queue. An in-flight job keeps running.
func (m *Manager) RemoveJob(id int64) bool {
	if !m.queue.Remove(id) {
		return false
	}
	m.publishQueue()
	return true
}

func (m *Manager) ClearFailedJobs() int {
	removed := m.queue.RemoveFailed()
	m.publishQueue()
	return removed
}

// Close stops accepting jobs and waits for running pipelines and pending
// cuts, or for ctx.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// printerLocks serializes pipelines per printer name.
type printerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPrinterLocks() *printerLocks {
	return &printerLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *printerLocks) lock(printer string) func() {
	p.mu.Lock()
	l, ok := p.locks[printer]
	if !ok {
		l = &sync.Mutex{}
		p.locks[printer] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
