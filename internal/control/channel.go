// Package control is the local command channel used by the settings UI and
// the CLI. Each method maps to one command.
package control

import (
	"context"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/core"
	"github.com/orrn/printbridge/internal/db"
	"github.com/orrn/printbridge/internal/settings"
)

// Jobs is the slice of the job manager the channel drives.
type Jobs interface {
	TestPrint(ctx context.Context, printer string, paperWidth int) (core.PrintResult, error)
	RecentJobs() []core.PrintJob
	RemoveJob(id int64) bool
	ClearFailedJobs() int
}

type Server interface {
	Port() int
	Running() bool
	ChangePort(ctx context.Context, port int) (string, error)
}

type AutoLauncher interface {
	Enabled() (bool, error)
	Enable() error
	Disable() error
}

type HistoryReader interface {
	ListJobs(ctx context.Context, f db.JobFilter) ([]*db.JobRecord, error)
}

// Deps wires a Channel. Lister, Launcher and History may be nil.
type Deps struct {
	Jobs     Jobs
	Lister   core.PrinterLister
	Settings *settings.Store
	Server   Server
	Launcher AutoLauncher
	History  HistoryReader
	Bus      *core.Bus
}

type Channel struct {
	deps Deps
}

type ServerStatus struct {
	Running bool   `json:"running"`
	Port    int    `json:"port"`
	URL     string `json:"url"`
}

// Result is the {success, message} envelope returned by mutating commands.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func New(deps Deps) *Channel {
	return &Channel{deps: deps}
}

// Printers lists installed printers. Failures yield an empty list.
func (c *Channel) Printers(ctx context.Context) []core.PrinterInfo {
	if c.deps.Lister == nil {
		return []core.PrinterInfo{}
	}
	printers, err := c.deps.Lister.ListPrinters(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list printers")
		return []core.PrinterInfo{}
	}
	for i := range printers {
		if printers[i].DisplayName == "" {
			printers[i].DisplayName = printers[i].Name
		}
	}
	return printers
}

func (c *Channel) TestPrint(ctx context.Context, printer string, paperWidth int) (core.PrintResult, error) {
	return c.deps.Jobs.TestPrint(ctx, printer, paperWidth)
}

func (c *Channel) ServerStatus() ServerStatus {
	port := c.deps.Server.Port()
	return ServerStatus{
		Running: c.deps.Server.Running(),
		Port:    port,
		URL:     fmt.Sprintf("http://%s:%d", LocalIP(), port),
	}
}

// AutoLaunchEnabled reports false when the state cannot be read.
func (c *Channel) AutoLaunchEnabled() bool {
	if c.deps.Launcher == nil {
		return false
	}
	enabled, err := c.deps.Launcher.Enabled()
	if err != nil {
		log.WithError(err).Warn("failed to read auto-launch state")
		return false
	}
	return enabled
}

func (c *Channel) SetAutoLaunch(enabled bool) Result {
	if c.deps.Launcher == nil {
		return Result{Success: false, Message: "auto-launch is not supported"}
	}

	var err error
	if enabled {
		err = c.deps.Launcher.Enable()
	} else {
		err = c.deps.Launcher.Disable()
	}
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true}
}

func (c *Channel) Config() settings.Config {
	return c.deps.Settings.Snapshot()
}

// SaveConfig merges p into the settings. success is false when the file
// could not be written, although the new values are already in effect.
func (c *Channel) SaveConfig(p settings.Patch) Result {
	if err := c.deps.Settings.Save(p); err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true}
}

func (c *Channel) ChangePort(ctx context.Context, port int) Result {
	msg, err := c.deps.Server.ChangePort(ctx, port)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true, Message: msg}
}

func (c *Channel) PrintQueue() []core.PrintJob {
	return c.deps.Jobs.RecentJobs()
}

func (c *Channel) RemoveJob(id int64) Result {
	return Result{Success: c.deps.Jobs.RemoveJob(id)}
}

func (c *Channel) ClearFailedJobs() int {
	return c.deps.Jobs.ClearFailedJobs()
}

// ShowNotification publishes an informational notification to every
// subscriber.
func (c *Channel) ShowNotification(title, message string) Result {
	c.deps.Bus.Publish(core.Event{
		Kind:         core.EventNotification,
		Notification: &core.Notification{Title: title, Message: message},
	})
	return Result{Success: true}
}

// Subscribe registers s for engine events until the returned func is called.
func (c *Channel) Subscribe(s core.Subscriber) func() {
	return c.deps.Bus.Subscribe(s)
}

func (c *Channel) History(ctx context.Context, f db.JobFilter) ([]*db.JobRecord, error) {
	if c.deps.History == nil {
		return []*db.JobRecord{}, nil
	}
	return c.deps.History.ListJobs(ctx, f)
}

// LocalIP returns the first non-loopback IPv4 address, or "localhost".
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}
