package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "printbridge",
	Short: "Local print bridge for thermal receipt printers",
	Long: `printbridge accepts HTML receipts over HTTP, prints them through the
system spooler and follows each successful job with a raw ESC/POS cut.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
}

// loadConfig reads the YAML file, applies environment overrides and sets up
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}
