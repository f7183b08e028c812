package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMonitor_EmitsOnlyOnChange(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]PrinterInfo{
		{Name: "Kitchen", Status: PrinterStatusIdle},
		{Name: "Bar", Status: PrinterStatusIdle},
	}, nil)

	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	m := NewStatusMonitor(lister, bus, time.Hour)
	ctx := context.Background()

	changes, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, changes, 2, "first sight counts as a change")

	changes, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	lister.set([]PrinterInfo{
		{Name: "Kitchen", Status: PrinterStatusStopped},
		{Name: "Bar", Status: PrinterStatusIdle},
	}, nil)

	changes, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PrinterStatusChange{{Name: "Kitchen", Status: PrinterStatusStopped}}, changes)

	events := rec.ofKind(EventPrinterStatusChanged)
	require.Len(t, events, 3)
	assert.Equal(t, "Kitchen", events[2].Printer.Name)
	assert.Equal(t, PrinterStatusStopped, events[2].Printer.Status)

	assert.Equal(t, map[string]int{"Kitchen": PrinterStatusStopped, "Bar": PrinterStatusIdle}, m.Statuses())
}

func TestStatusMonitor_FailedQuerySkipsCycle(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]PrinterInfo{{Name: "Kitchen", Status: PrinterStatusIdle}}, nil)

	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	m := NewStatusMonitor(lister, bus, time.Hour)
	_, err := m.Poll(context.Background())
	require.NoError(t, err)

	lister.set(nil, errors.New("spooler down"))
	_, err = m.Poll(context.Background())
	assert.Error(t, err)

	assert.Equal(t, map[string]int{"Kitchen": PrinterStatusIdle}, m.Statuses())
	assert.Len(t, rec.ofKind(EventPrinterStatusChanged), 1)
}

func TestStatusMonitor_NoLister(t *testing.T) {
	m := NewStatusMonitor(nil, NewBus(), time.Millisecond)
	m.Start()
	m.Stop()

	_, err := m.Poll(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Empty(t, m.Statuses())
}

func TestStatusMonitor_StartPolls(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]PrinterInfo{{Name: "Kitchen", Status: PrinterStatusProcessing}}, nil)

	m := NewStatusMonitor(lister, NewBus(), 5*time.Millisecond)
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return m.Statuses()["Kitchen"] == PrinterStatusProcessing
	}, time.Second, 5*time.Millisecond)
}

type panickingLister struct{}

func (panickingLister) ListPrinters(ctx context.Context) ([]PrinterInfo, error) {
	panic("driver crashed")
}

func TestStatusMonitor_PanickingListerSkipsCycle(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	m := NewStatusMonitor(panickingLister{}, bus, time.Hour)

	var err error
	require.NotPanics(t, func() {
		_, err = m.Poll(context.Background())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver crashed")
	assert.Empty(t, m.Statuses())
	assert.Empty(t, rec.ofKind(EventPrinterStatusChanged))
}
