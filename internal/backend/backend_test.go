package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/core"
)

const lpstatOutput = `printer Kitchen is idle.  enabled since Mon 01 Jan 2024 09:00:00 AM UTC
printer Bar now printing Bar-12.  enabled since Mon 01 Jan 2024 09:00:00 AM UTC
printer Office disabled since Mon 01 Jan 2024 09:00:00 AM UTC -
	reason unknown
system default destination: Bar
`

func TestParseLpstat(t *testing.T) {
	got := parseLpstat(lpstatOutput)

	assert.Equal(t, []core.PrinterInfo{
		{Name: "Kitchen", DisplayName: "Kitchen", Status: core.PrinterStatusIdle},
		{Name: "Bar", DisplayName: "Bar", IsDefault: true, Status: core.PrinterStatusProcessing},
		{Name: "Office", DisplayName: "Office", Status: core.PrinterStatusStopped},
	}, got)
}

func TestCUPSLister(t *testing.T) {
	l := &CUPSLister{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "lpstat", name)
		assert.Equal(t, []string{"-p", "-d"}, args)
		return []byte(lpstatOutput), nil
	}}

	printers, err := l.ListPrinters(context.Background())
	require.NoError(t, err)
	assert.Len(t, printers, 3)
}

func TestCUPSLister_NoDestinations(t *testing.T) {
	l := &CUPSLister{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("lpstat: No destinations added.\n"), errors.New("exit status 1")
	}}

	printers, err := l.ListPrinters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, printers)
}

func TestCUPSLister_Error(t *testing.T) {
	l := &CUPSLister{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("scheduler is not running"), errors.New("exit status 1")
	}}

	_, err := l.ListPrinters(context.Background())
	assert.ErrorContains(t, err, "scheduler is not running")
}

func TestCommand_PrintsLoadedContent(t *testing.T) {
	cmd, err := NewCommand("lp -d {{.Printer}} -o media=Custom.{{.PaperWidth}}x297mm {{.File}}")
	require.NoError(t, err)
	cmd.tempDir = t.TempDir()

	var gotName string
	var gotArgs []string
	var gotBody []byte
	cmd.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		gotBody, _ = os.ReadFile(args[len(args)-1])
		return nil, nil
	}

	ctx := context.Background()
	session, err := cmd.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, session.Load(ctx, core.Source{HTML: "<body>hi</body>"}))
	require.NoError(t, session.Print(ctx, core.PrintOptions{Printer: "Front Desk", PaperWidth: 58}))

	assert.Equal(t, "lp", gotName)
	require.Len(t, gotArgs, 5)
	assert.Equal(t, []string{"-d", "Front Desk", "-o", "media=Custom.58x297mm"}, gotArgs[:4])
	assert.Equal(t, "<body>hi</body>", string(gotBody))

	dir := filepath.Dir(gotArgs[4])
	require.NoError(t, session.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "session directory is removed on close")
	assert.NoError(t, session.Close())
}

func TestCommand_PrintFailureIncludesOutput(t *testing.T) {
	cmd, err := NewCommand("lp {{.File}}")
	require.NoError(t, err)
	cmd.tempDir = t.TempDir()
	cmd.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("lp: The printer or class does not exist.\n"), errors.New("exit status 1")
	}

	ctx := context.Background()
	session, err := cmd.Open(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load(ctx, core.Source{HTML: "x"}))
	err = session.Print(ctx, core.PrintOptions{Printer: "Nope"})
	assert.ErrorContains(t, err, "does not exist")
}

func TestCommand_LoadsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<body>remote</body>"))
	}))
	defer srv.Close()

	cmd, err := NewCommand("lp {{.File}}")
	require.NoError(t, err)
	cmd.tempDir = t.TempDir()

	var body []byte
	cmd.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		body, _ = os.ReadFile(args[0])
		return nil, nil
	}

	ctx := context.Background()
	session, err := cmd.Open(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load(ctx, core.Source{URL: srv.URL + "/receipt", HTML: "ignored"}))
	require.NoError(t, session.Print(ctx, core.PrintOptions{Printer: "Bar"}))
	assert.Equal(t, "<body>remote</body>", string(body))

	assert.Error(t, session.Load(ctx, core.Source{URL: srv.URL + "/missing"}))
}

func TestNewCommand_Invalid(t *testing.T) {
	_, err := NewCommand("   ")
	assert.Error(t, err)

	_, err = NewCommand("lp {{.Printer")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	b, err := New(config.BackendConfig{Kind: KindDryRun, DryRunPrinters: []string{"Kitchen", "Bar"}})
	require.NoError(t, err)
	assert.NotNil(t, b.Renderer)

	printers, err := b.Lister.ListPrinters(context.Background())
	require.NoError(t, err)
	require.Len(t, printers, 2)
	assert.True(t, printers[0].IsDefault)

	b, err = New(config.BackendConfig{Kind: KindAuto, PrintCommand: "definitely-not-a-real-binary {{.File}}"})
	require.NoError(t, err)
	assert.Nil(t, b.Renderer)
	assert.NotNil(t, b.Lister)

	_, err = New(config.BackendConfig{Kind: "cloud"})
	assert.Error(t, err)
}

func TestDryRun_RecordsPrints(t *testing.T) {
	d := NewDryRun(nil)
	ctx := context.Background()

	session, err := d.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Load(ctx, core.Source{HTML: "x"}))
	require.NoError(t, session.Print(ctx, core.PrintOptions{Printer: "Kitchen", PaperWidth: 58}))
	require.NoError(t, session.Close())

	assert.Equal(t, []core.PrintOptions{{Printer: "Kitchen", PaperWidth: 58}}, d.Printed())
}
