package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orrn/printbridge/internal/core"
)

var (
	cutIP   string
	cutPort int
)

var cutCmd = &cobra.Command{
	Use:   "cut",
	Short: "Send the cut command to a printer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ip := cutIP
		if ip == "" {
			ip = cfg.Printers.DefaultIP
		}
		port := cutPort
		if port == 0 {
			port = cfg.Printers.RawPort
		}

		sender := core.NewRawSender(cfg.Printers.ConnectionTimeout)
		if err := sender.Send(cmd.Context(), ip, port, core.CutCommand); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Cut sent to %s:%d\n", ip, port)
		return nil
	},
}

func init() {
	cutCmd.Flags().StringVar(&cutIP, "ip", "", "printer IP address (default from config)")
	cutCmd.Flags().IntVar(&cutPort, "port", 0, "printer raw port (default from config)")
	rootCmd.AddCommand(cutCmd)
}
