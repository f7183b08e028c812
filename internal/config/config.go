package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Settings SettingsConfig `yaml:"settings"`
	Database DatabaseConfig `yaml:"database"`
	Printers PrintersConfig `yaml:"printers"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Version      string        `yaml:"version"`
}

// SettingsConfig locates the user settings file. An empty path selects the
// per-user application data directory.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	ArchivePath string `yaml:"archive_path"`
	ArchiveDays int    `yaml:"archive_days"`
}

type PrintersConfig struct {
	DefaultIP          string        `yaml:"default_ip"`
	RawPort            int           `yaml:"raw_port"`
	ConnectionTimeout  time.Duration `yaml:"connection_timeout"`
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	SerializeJobs      bool          `yaml:"serialize_jobs"`
}

type JobsConfig struct {
	SettleDelay       time.Duration `yaml:"settle_delay"`
	CutDelay          time.Duration `yaml:"cut_delay"`
	DefaultPaperWidth int           `yaml:"default_paper_width"`
	CutSpacingMM      int           `yaml:"cut_spacing_mm"`
	RecentLimit       int           `yaml:"recent_limit"`
}

type BackendConfig struct {
	Kind           string   `yaml:"kind"`
	PrintCommand   string   `yaml:"print_command"`
	DryRunPrinters []string `yaml:"dry_run_printers"`
}

type AuthConfig struct {
	PasswordHash string        `yaml:"password_hash"`
	Secret       string        `yaml:"secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type WebhooksConfig struct {
	Timeout    time.Duration     `yaml:"timeout"`
	RetryCount int               `yaml:"retry_count"`
	RetryDelay time.Duration     `yaml:"retry_delay"`
	Workers    int               `yaml:"workers"`
	QueueSize  int               `yaml:"queue_size"`
	Endpoints  []WebhookEndpoint `yaml:"endpoints"`
}

type WebhookEndpoint struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const DefaultPrintCommand = "lp -d {{.Printer}} -o media=Custom.{{.PaperWidth}}x297mm -o page-left=0 -o page-right=0 -o page-top=0 -o page-bottom=0 {{.File}}"

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			Version:      "3.0-Enhanced",
		},
		Database: DatabaseConfig{
			Path:        "./data/printbridge.db",
			ArchivePath: "./data/archives",
			ArchiveDays: 30,
		},
		Printers: PrintersConfig{
			DefaultIP:          "192.168.68.100",
			RawPort:            9100,
			StatusPollInterval: 10 * time.Second,
		},
		Jobs: JobsConfig{
			SettleDelay:       500 * time.Millisecond,
			CutDelay:          1200 * time.Millisecond,
			DefaultPaperWidth: 80,
			CutSpacingMM:      30,
			RecentLimit:       20,
		},
		Backend: BackendConfig{
			Kind:         "auto",
			PrintCommand: DefaultPrintCommand,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Webhooks: WebhooksConfig{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			RetryDelay: 5 * time.Second,
			Workers:    2,
			QueueSize:  100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays PRINTBRIDGE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PRINTBRIDGE_HOST"); v != "" {
		c.Server.Host = v
	}

	if v := os.Getenv("PRINTBRIDGE_SETTINGS_PATH"); v != "" {
		c.Settings.Path = v
	}

	if v := os.Getenv("PRINTBRIDGE_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("PRINTBRIDGE_PRINTER_IP"); v != "" {
		c.Printers.DefaultIP = v
	}

	if v := os.Getenv("PRINTBRIDGE_BACKEND"); v != "" {
		c.Backend.Kind = v
	}

	if v := os.Getenv("PRINTBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.ArchiveDays < 0 {
		return fmt.Errorf("archive days must be non-negative")
	}

	if net.ParseIP(c.Printers.DefaultIP) == nil {
		return fmt.Errorf("printers default ip is not a valid address: %q", c.Printers.DefaultIP)
	}

	if c.Printers.RawPort < 1 || c.Printers.RawPort > 65535 {
		return fmt.Errorf("printers raw port must be between 1 and 65535, got %d", c.Printers.RawPort)
	}

	if c.Printers.ConnectionTimeout < 0 {
		return fmt.Errorf("connection timeout must be non-negative")
	}

	if c.Printers.StatusPollInterval < 0 {
		return fmt.Errorf("status poll interval must be non-negative")
	}

	if c.Jobs.SettleDelay < 0 || c.Jobs.CutDelay < 0 {
		return fmt.Errorf("job delays must be non-negative")
	}

	if c.Jobs.DefaultPaperWidth < 1 {
		return fmt.Errorf("default paper width must be positive, got %d", c.Jobs.DefaultPaperWidth)
	}

	if c.Jobs.CutSpacingMM < 0 {
		return fmt.Errorf("cut spacing must be non-negative")
	}

	if c.Jobs.RecentLimit < 1 {
		return fmt.Errorf("recent limit must be at least 1")
	}

	validKinds := map[string]bool{
		"auto":    true,
		"command": true,
		"dryrun":  true,
	}

	if !validKinds[c.Backend.Kind] {
		return fmt.Errorf("invalid backend kind: %s (valid: auto, command, dryrun)", c.Backend.Kind)
	}

	if c.Backend.Kind != "dryrun" && strings.TrimSpace(c.Backend.PrintCommand) == "" {
		return fmt.Errorf("backend print command is required")
	}

	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth token ttl must be non-negative")
	}

	for i, ep := range c.Webhooks.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("webhook endpoint %d has no url", i)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
