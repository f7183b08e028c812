package main

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/orrn/printbridge/internal/autostart"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage printbridge as a system service",
	Long: `Install, uninstall, start, stop, or check the status of printbridge as a
system service.

On Windows this manages a Windows Service, on Linux a systemd unit and on
macOS a launchd agent. An installed service starts printbridge at boot.`,
}

func newServiceCommand(use, short string, action func(cmd *cobra.Command, l *autostart.Launcher) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := autostart.New(&program{}, serviceConfigPath())
			if err != nil {
				return err
			}
			return action(cmd, l)
		},
	}
}

func init() {
	serviceCmd.AddCommand(
		newServiceCommand("install", "Install the printbridge service", func(cmd *cobra.Command, l *autostart.Launcher) error {
			if err := l.Enable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service installed.")
			return nil
		}),
		newServiceCommand("uninstall", "Uninstall the printbridge service", func(cmd *cobra.Command, l *autostart.Launcher) error {
			if err := l.Disable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled.")
			return nil
		}),
		newServiceCommand("start", "Start the installed service", func(cmd *cobra.Command, l *autostart.Launcher) error {
			if err := l.Service().Start(); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service started.")
			return nil
		}),
		newServiceCommand("stop", "Stop the running service", func(cmd *cobra.Command, l *autostart.Launcher) error {
			if err := l.Service().Stop(); err != nil {
				return fmt.Errorf("failed to stop service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service stopped.")
			return nil
		}),
		newServiceCommand("status", "Show the service status", func(cmd *cobra.Command, l *autostart.Launcher) error {
			status, err := l.Service().Status()
			if errors.Is(err, service.ErrNotInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Service is not installed.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to query service status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service is %s.\n", statusText(status))
			return nil
		}),
	)
	rootCmd.AddCommand(serviceCmd)
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "in an unknown state"
	}
}
