// Package settings holds the user-editable printer settings persisted as
// JSON in the per-user application data directory.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultPort = 9100
	appDir      = "printbridge"
	fileName    = "printer-config.json"
)

type Config struct {
	Port               int               `json:"port"`
	PrinterAliases     map[string]string `json:"printerAliases"`
	PrinterPaperWidths map[string]int    `json:"printerPaperWidths"`
	FavoritePrinters   []string          `json:"favoritePrinters"`
	PrinterIPs         map[string]string `json:"printerIPs"`
}

// Patch is a partial Config. Nil fields are left untouched by Save; non-nil
// fields replace the stored value wholesale.
type Patch struct {
	Port               *int              `json:"port,omitempty"`
	PrinterAliases     map[string]string `json:"printerAliases,omitempty"`
	PrinterPaperWidths map[string]int    `json:"printerPaperWidths,omitempty"`
	FavoritePrinters   []string          `json:"favoritePrinters,omitempty"`
	PrinterIPs         map[string]string `json:"printerIPs,omitempty"`
}

// IOError reports a failed write. The in-memory settings have already been
// updated when it is returned.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to save settings to %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func Defaults() Config {
	return Config{
		Port:               DefaultPort,
		PrinterAliases:     map[string]string{},
		PrinterPaperWidths: map[string]int{},
		FavoritePrinters:   []string{},
		PrinterIPs:         map[string]string{},
	}
}

// DefaultPath returns the settings file under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, appDir, fileName)
}

type Store struct {
	// saveMu orders saves so the file always holds the latest merge.
	saveMu sync.Mutex
	mu     sync.RWMutex
	path   string
	cfg    Config
}

// Load reads the settings file. It never fails: a missing or unreadable file
// yields the defaults.
func Load(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path, cfg: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("failed to read settings, using defaults")
		}
		return s
	}

	var parsed Config
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to parse settings, using defaults")
		return s
	}

	s.cfg = normalize(parsed)
	log.WithField("path", path).Info("settings loaded")
	return s
}

func normalize(c Config) Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PrinterAliases == nil {
		c.PrinterAliases = map[string]string{}
	}
	if c.PrinterPaperWidths == nil {
		c.PrinterPaperWidths = map[string]int{}
	}
	if c.FavoritePrinters == nil {
		c.FavoritePrinters = []string{}
	}
	if c.PrinterIPs == nil {
		c.PrinterIPs = map[string]string{}
	}
	return c
}

func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current settings.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.cfg)
}

func (s *Store) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Port
}

func (s *Store) PaperWidth(printer string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.cfg.PrinterPaperWidths[printer]
	if !ok || w <= 0 {
		return 0, false
	}
	return w, true
}

func (s *Store) PrinterIP(printer string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ip, ok := s.cfg.PrinterIPs[printer]
	if !ok || ip == "" {
		return "", false
	}
	return ip, true
}

// Save merges the patch into the in-memory settings and writes the full
// result to disk.
func (s *Store) Save(p Patch) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if p.Port != nil {
		s.cfg.Port = *p.Port
	}
	if p.PrinterAliases != nil {
		s.cfg.PrinterAliases = copyMap(p.PrinterAliases)
	}
	if p.PrinterPaperWidths != nil {
		s.cfg.PrinterPaperWidths = copyMap(p.PrinterPaperWidths)
	}
	if p.FavoritePrinters != nil {
		s.cfg.FavoritePrinters = dedupe(p.FavoritePrinters)
	}
	if p.PrinterIPs != nil {
		s.cfg.PrinterIPs = copyMap(p.PrinterIPs)
	}
	snapshot := clone(s.cfg)
	s.mu.Unlock()

	if err := write(s.path, snapshot); err != nil {
		log.WithError(err).WithField("path", s.path).Error("failed to save settings")
		return &IOError{Path: s.path, Err: err}
	}

	log.WithField("path", s.path).Info("settings saved")
	return nil
}

func write(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}

	return nil
}

func clone(c Config) Config {
	return Config{
		Port:               c.Port,
		PrinterAliases:     copyMap(c.PrinterAliases),
		PrinterPaperWidths: copyMap(c.PrinterPaperWidths),
		FavoritePrinters:   append([]string{}, c.FavoritePrinters...),
		PrinterIPs:         copyMap(c.PrinterIPs),
	}
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// favorites are a set; order of first appearance is kept for display.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
