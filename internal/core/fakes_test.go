package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeRenderer struct {
	mu sync.Mutex

	openErr    error
	loadErr    error
	printErr   error
	printPanic bool
	// release, when set, blocks Print until it is closed or receives.
	release chan struct{}
	// printing receives the printer name as Print starts.
	printing chan string

	opened  int
	closed  int
	loaded  []Source
	printed []PrintOptions
}

func (r *fakeRenderer) Open(ctx context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.opened++
	return &fakeSession{r: r}, nil
}

func (r *fakeRenderer) counts() (opened, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed
}

func (r *fakeRenderer) lastLoaded() Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[len(r.loaded)-1]
}

type fakeSession struct {
	r *fakeRenderer
}

func (s *fakeSession) Load(ctx context.Context, src Source) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.loaded = append(s.r.loaded, src)
	return s.r.loadErr
}

func (s *fakeSession) Print(ctx context.Context, opts PrintOptions) error {
	if s.r.printing != nil {
		s.r.printing <- opts.Printer
	}
	if s.r.release != nil {
		<-s.r.release
	}

	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.r.printPanic {
		panic("renderer crashed")
	}
	s.r.printed = append(s.r.printed, opts)
	return s.r.printErr
}

func (s *fakeSession) Close() error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.closed++
	return nil
}

type fakeSettings struct {
	widths map[string]int
	ips    map[string]string
}

func (s fakeSettings) PaperWidth(printer string) (int, bool) {
	w, ok := s.widths[printer]
	return w, ok
}

func (s fakeSettings) PrinterIP(printer string) (string, bool) {
	ip, ok := s.ips[printer]
	return ip, ok
}

type cutCall struct {
	ip   string
	port int
}

type fakeCutter struct {
	calls chan cutCall
}

func newFakeCutter() *fakeCutter {
	return &fakeCutter{calls: make(chan cutCall, 16)}
}

func (c *fakeCutter) SendCut(ctx context.Context, ip string, port int) {
	c.calls <- cutCall{ip: ip, port: port}
}

type fakeLister struct {
	mu       sync.Mutex
	printers []PrinterInfo
	err      error
}

func (l *fakeLister) set(printers []PrinterInfo, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.printers = printers
	l.err = err
}

func (l *fakeLister) ListPrinters(ctx context.Context) ([]PrinterInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return append([]PrinterInfo(nil), l.printers...), nil
}

// recorder collects bus events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) HandleEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

var errPrinterJam = errors.New("printer jammed")

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		SettleDelay:       0,
		CutDelay:          10 * time.Millisecond,
		DefaultPaperWidth: 80,
		CutSpacingMM:      30,
		RecentLimit:       20,
		DefaultPrinterIP:  "192.168.68.100",
		RawPort:           9100,
	}
}
