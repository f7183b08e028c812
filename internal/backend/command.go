package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/core"
)

const maxDocumentSize = 50 << 20

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Command renders jobs to a file in a per-session directory and hands it to
// the OS spooler with a templated command line.
type Command struct {
	args    []*template.Template
	client  *http.Client
	tempDir string
	run     runFunc
}

type commandData struct {
	Printer    string
	File       string
	PaperWidth int
}

// NewCommand parses the print command. Each whitespace-separated word is a
// template over .Printer, .File and .PaperWidth, so printer names containing
// spaces stay a single argument.
func NewCommand(printCommand string) (*Command, error) {
	words := strings.Fields(printCommand)
	if len(words) == 0 {
		return nil, fmt.Errorf("print command is empty")
	}

	args := make([]*template.Template, 0, len(words))
	for i, w := range words {
		t, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(w)
		if err != nil {
			return nil, fmt.Errorf("invalid print command %q: %w", w, err)
		}
		args = append(args, t)
	}

	return &Command{
		args:    args,
		client:  http.DefaultClient,
		tempDir: os.TempDir(),
		run:     execRun,
	}, nil
}

func (c *Command) Open(ctx context.Context) (core.Session, error) {
	dir := filepath.Join(c.tempDir, "printbridge-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &commandSession{cmd: c, dir: dir}, nil
}

func (c *Command) render(data commandData) ([]string, error) {
	out := make([]string, 0, len(c.args))
	for _, t := range c.args {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render print command: %w", err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}

type commandSession struct {
	cmd  *Command
	dir  string
	file string
	once sync.Once
}

func (s *commandSession) Load(ctx context.Context, src core.Source) error {
	body := []byte(src.HTML)
	if src.URL != "" {
		fetched, err := s.fetch(ctx, src.URL)
		if err != nil {
			return err
		}
		body = fetched
	}

	s.file = filepath.Join(s.dir, "receipt.html")
	if err := os.WriteFile(s.file, body, 0o600); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (s *commandSession) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	resp, err := s.cmd.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

func (s *commandSession) Print(ctx context.Context, opts core.PrintOptions) error {
	if s.file == "" {
		return fmt.Errorf("nothing loaded")
	}

	argv, err := s.cmd.render(commandData{
		Printer:    opts.Printer,
		File:       s.file,
		PaperWidth: opts.PaperWidth,
	})
	if err != nil {
		return err
	}

	out, err := s.cmd.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", argv[0], err)
		}
		return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
	}

	log.WithFields(log.Fields{
		"printer": opts.Printer,
		"command": argv[0],
	}).Debug("document handed to spooler")
	return nil
}

func (s *commandSession) Close() error {
	var err error
	s.once.Do(func() {
		err = os.RemoveAll(s.dir)
	})
	return err
}
