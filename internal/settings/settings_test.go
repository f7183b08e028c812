package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "printer-config.json"))

	cfg := s.Snapshot()
	assert.Equal(t, 9100, cfg.Port)
	assert.Empty(t, cfg.PrinterAliases)
	assert.Empty(t, cfg.PrinterPaperWidths)
	assert.Empty(t, cfg.FavoritePrinters)
	assert.Empty(t, cfg.PrinterIPs)
	assert.NotNil(t, cfg.FavoritePrinters)
}

func TestLoad_CorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer-config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Load(path)
	assert.Equal(t, Defaults(), s.Snapshot())
}

func TestLoad_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer-config.json")
	data := `{"port": 9200, "printerPaperWidths": {"Kitchen": 58}, "printerIPs": {"Kitchen": "10.0.0.7"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s := Load(path)
	assert.Equal(t, 9200, s.Port())

	w, ok := s.PaperWidth("Kitchen")
	assert.True(t, ok)
	assert.Equal(t, 58, w)

	_, ok = s.PaperWidth("Bar")
	assert.False(t, ok)

	ip, ok := s.PrinterIP("Kitchen")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.7", ip)

	assert.NotNil(t, s.Snapshot().PrinterAliases, "absent maps are normalized")
}

func TestSave_ShallowMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "printer-config.json")
	s := Load(path)

	require.NoError(t, s.Save(Patch{
		PrinterPaperWidths: map[string]int{"Kitchen": 58, "Bar": 80},
		PrinterIPs:         map[string]string{"Kitchen": "10.0.0.7"},
	}))

	// A later patch replaces printerPaperWidths wholesale and keeps printerIPs.
	require.NoError(t, s.Save(Patch{
		PrinterPaperWidths: map[string]int{"Bar": 72},
		FavoritePrinters:   []string{"Bar", "Kitchen", "Bar"},
	}))

	cfg := s.Snapshot()
	assert.Equal(t, map[string]int{"Bar": 72}, cfg.PrinterPaperWidths)
	assert.Equal(t, map[string]string{"Kitchen": "10.0.0.7"}, cfg.PrinterIPs)
	assert.Equal(t, []string{"Bar", "Kitchen"}, cfg.FavoritePrinters)
	assert.Equal(t, 9100, cfg.Port)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk Config
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, cfg, onDisk)

	reloaded := Load(path)
	assert.Equal(t, cfg, reloaded.Snapshot())
}

func TestSave_IOErrorKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent "directory" is a regular file, so MkdirAll fails.
	s := Load(filepath.Join(blocker, "printer-config.json"))

	port := 9300
	err := s.Save(Patch{Port: &port})
	require.Error(t, err)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, 9300, s.Port(), "in-memory state is mutated even when the write fails")
}

func TestSnapshotIsACopy(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "printer-config.json"))
	require.NoError(t, s.Save(Patch{PrinterAliases: map[string]string{"Kitchen": "Hot line"}}))

	snap := s.Snapshot()
	snap.PrinterAliases["Kitchen"] = "changed"

	assert.Equal(t, "Hot line", s.Snapshot().PrinterAliases["Kitchen"])
}

func TestPatchJSONOmitsAbsentKeys(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"printerIPs": {"Bar": "10.0.0.9"}}`), &p))

	assert.Nil(t, p.Port)
	assert.Nil(t, p.PrinterPaperWidths)
	assert.Equal(t, map[string]string{"Bar": "10.0.0.9"}, p.PrinterIPs)
}

func TestSave_ConcurrentSavesKeepFileInSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printer-config.json")
	s := Load(path)

	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			port := 9000 + round*16 + i
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Save(Patch{Port: &port})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var onDisk Config
		require.NoError(t, json.Unmarshal(data, &onDisk))
		require.Equal(t, s.Port(), onDisk.Port, "round %d", round)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}
