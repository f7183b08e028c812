package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultStatusPollInterval = 10 * time.Second

// StatusMonitor polls the enumeration backend and publishes a
// printer-status-change event whenever a printer's status differs from the
// last one seen.
type StatusMonitor struct {
	lister   PrinterLister
	bus      *Bus
	interval time.Duration

	mu    sync.RWMutex
	cache map[string]int

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewStatusMonitor(lister PrinterLister, bus *Bus, interval time.Duration) *StatusMonitor {
	if interval <= 0 {
		interval = DefaultStatusPollInterval
	}
	return &StatusMonitor{
		lister:   lister,
		bus:      bus,
		interval: interval,
		cache:    make(map[string]int),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop. Without a lister it does nothing.
func (m *StatusMonitor) Start() {
	if m.lister == nil {
		log.Warn("no printer lister configured, status monitoring disabled")
		return
	}

	m.wg.Add(1)
	go m.loop()
}

func (m *StatusMonitor) Stop() {
	m.once.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

func (m *StatusMonitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			_, _ = m.Poll(ctx)
		}
	}
}

// Poll runs one cycle and returns the changes it published. A failed query
// leaves the cache untouched.
func (m *StatusMonitor) Poll(ctx context.Context) ([]PrinterStatusChange, error) {
	if m.lister == nil {
		return nil, ErrBackendUnavailable
	}

	printers, err := m.listPrinters(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to check printer status")
		return nil, err
	}

	var changes []PrinterStatusChange

	m.mu.Lock()
	for _, p := range printers {
		previous, seen := m.cache[p.Name]
		if seen && previous == p.Status {
			continue
		}
		m.cache[p.Name] = p.Status
		changes = append(changes, PrinterStatusChange{Name: p.Name, Status: p.Status})
	}
	m.mu.Unlock()

	for i := range changes {
		change := changes[i]
		log.WithFields(log.Fields{
			"printer": change.Name,
			"status":  change.Status,
		}).Info("printer status changed")
		m.bus.Publish(Event{Kind: EventPrinterStatusChanged, Printer: &change})
	}

	return changes, nil
}

// listPrinters reports a panicking lister as a failed query.
func (m *StatusMonitor) listPrinters(ctx context.Context) (printers []PrinterInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			printers, err = nil, fmt.Errorf("printer lister panic: %v", r)
		}
	}()
	return m.lister.ListPrinters(ctx)
}

// Statuses returns a copy of the last observed status per printer.
func (m *StatusMonitor) Statuses() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.cache))
	for k, v := range m.cache {
		out[k] = v
	}
	return out
}
