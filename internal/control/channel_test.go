package control

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printbridge/internal/core"
	"github.com/orrn/printbridge/internal/db"
	"github.com/orrn/printbridge/internal/settings"
)

type fakeJobs struct {
	jobs    []core.PrintJob
	removed []int64
	cleared int
	tested  []string
}

func (f *fakeJobs) TestPrint(ctx context.Context, printer string, paperWidth int) (core.PrintResult, error) {
	f.tested = append(f.tested, printer)
	return core.PrintResult{JobID: 1, Success: true, Message: "ok"}, nil
}

func (f *fakeJobs) RecentJobs() []core.PrintJob { return f.jobs }

func (f *fakeJobs) RemoveJob(id int64) bool {
	f.removed = append(f.removed, id)
	return id == 42
}

func (f *fakeJobs) ClearFailedJobs() int { return f.cleared }

type fakeServer struct {
	port int
	err  error
}

func (f *fakeServer) Port() int     { return f.port }
func (f *fakeServer) Running() bool { return true }

func (f *fakeServer) ChangePort(ctx context.Context, port int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.port = port
	return "Server restarted on port 9200", nil
}

type fakeLauncher struct {
	enabled bool
	err     error
}

func (f *fakeLauncher) Enabled() (bool, error) { return f.enabled, f.err }

func (f *fakeLauncher) Enable() error {
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeLauncher) Disable() error {
	f.enabled = false
	return f.err
}

type listerFunc func(ctx context.Context) ([]core.PrinterInfo, error)

func (f listerFunc) ListPrinters(ctx context.Context) ([]core.PrinterInfo, error) { return f(ctx) }

type fakeHistory struct {
	filter db.JobFilter
}

func (f *fakeHistory) ListJobs(ctx context.Context, filter db.JobFilter) ([]*db.JobRecord, error) {
	f.filter = filter
	return []*db.JobRecord{{ID: 7, PrinterName: "Kitchen", Status: "completed"}}, nil
}

func newChannel(t *testing.T) (*Channel, *fakeJobs, *fakeServer, *core.Bus) {
	t.Helper()
	jobs := &fakeJobs{}
	srv := &fakeServer{port: 9100}
	bus := core.NewBus()
	store := settings.Load(filepath.Join(t.TempDir(), "printer-config.json"))

	ch := New(Deps{
		Jobs:     jobs,
		Settings: store,
		Server:   srv,
		Bus:      bus,
		Lister: listerFunc(func(ctx context.Context) ([]core.PrinterInfo, error) {
			return []core.PrinterInfo{{Name: "Kitchen", IsDefault: true, Status: core.PrinterStatusIdle}}, nil
		}),
	})
	return ch, jobs, srv, bus
}

func TestChannel_Printers(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	printers := ch.Printers(context.Background())
	require.Len(t, printers, 1)
	assert.Equal(t, "Kitchen", printers[0].DisplayName, "display name falls back to name")

	ch.deps.Lister = listerFunc(func(ctx context.Context) ([]core.PrinterInfo, error) {
		return nil, errors.New("spooler down")
	})
	assert.Empty(t, ch.Printers(context.Background()))
	assert.NotNil(t, ch.Printers(context.Background()))

	ch.deps.Lister = nil
	assert.Empty(t, ch.Printers(context.Background()))
}

func TestChannel_ServerStatus(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	status := ch.ServerStatus()
	assert.True(t, status.Running)
	assert.Equal(t, 9100, status.Port)
	assert.Regexp(t, `^http://.+:9100$`, status.URL)
}

func TestChannel_ChangePort(t *testing.T) {
	ch, _, srv, _ := newChannel(t)

	res := ch.ChangePort(context.Background(), 9200)
	assert.Equal(t, Result{Success: true, Message: "Server restarted on port 9200"}, res)

	srv.err = errors.New("Port 9300 is already in use. Try: 9301, 9310, or 9999")
	res = ch.ChangePort(context.Background(), 9300)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already in use")
}

func TestChannel_AutoLaunch(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	assert.False(t, ch.AutoLaunchEnabled())
	assert.False(t, ch.SetAutoLaunch(true).Success)

	launcher := &fakeLauncher{}
	ch.deps.Launcher = launcher
	assert.True(t, ch.SetAutoLaunch(true).Success)
	assert.True(t, ch.AutoLaunchEnabled())
	assert.True(t, ch.SetAutoLaunch(false).Success)
	assert.False(t, ch.AutoLaunchEnabled())

	launcher.err = errors.New("permission denied")
	assert.False(t, ch.AutoLaunchEnabled())
	res := ch.SetAutoLaunch(true)
	assert.False(t, res.Success)
	assert.Equal(t, "permission denied", res.Message)
}

func TestChannel_Config(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	assert.Equal(t, settings.DefaultPort, ch.Config().Port)

	res := ch.SaveConfig(settings.Patch{PrinterPaperWidths: map[string]int{"Kitchen": 58}})
	assert.True(t, res.Success)
	assert.Equal(t, map[string]int{"Kitchen": 58}, ch.Config().PrinterPaperWidths)
	assert.Equal(t, settings.DefaultPort, ch.Config().Port)
}

func TestChannel_Queue(t *testing.T) {
	ch, jobs, _, _ := newChannel(t)
	jobs.jobs = []core.PrintJob{{ID: 42, Status: core.JobStatusFailed}}
	jobs.cleared = 2

	assert.Equal(t, jobs.jobs, ch.PrintQueue())
	assert.True(t, ch.RemoveJob(42).Success)
	assert.False(t, ch.RemoveJob(999).Success)
	assert.Equal(t, []int64{42, 999}, jobs.removed)
	assert.Equal(t, 2, ch.ClearFailedJobs())

	res, err := ch.TestPrint(context.Background(), "Kitchen", 58)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"Kitchen"}, jobs.tested)
}

func TestChannel_ShowNotification(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	var got []core.Event
	unsubscribe := ch.Subscribe(core.SubscriberFunc(func(e core.Event) {
		got = append(got, e)
	}))

	assert.True(t, ch.ShowNotification("Hello", "World").Success)
	unsubscribe()
	ch.ShowNotification("ignored", "after unsubscribe")

	require.Len(t, got, 1)
	assert.Equal(t, core.EventNotification, got[0].Kind)
	assert.Equal(t, &core.Notification{Title: "Hello", Message: "World"}, got[0].Notification)
}

func TestChannel_History(t *testing.T) {
	ch, _, _, _ := newChannel(t)

	records, err := ch.History(context.Background(), db.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	history := &fakeHistory{}
	ch.deps.History = history
	records, err = ch.History(context.Background(), db.JobFilter{Printer: "Kitchen", Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, db.JobFilter{Printer: "Kitchen", Limit: 5}, history.filter)
}

func TestLocalIP(t *testing.T) {
	assert.NotEmpty(t, LocalIP())
}
