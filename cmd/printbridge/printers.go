package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orrn/printbridge/internal/backend"
	"github.com/orrn/printbridge/internal/settings"
)

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List installed printers and their configured paper width",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		be, err := backend.New(cfg.Backend)
		if err != nil {
			return err
		}
		if be.Lister == nil {
			return fmt.Errorf("no printer backend available")
		}

		printers, err := be.Lister.ListPrinters(cmd.Context())
		if err != nil {
			return err
		}

		settingsPath := cfg.Settings.Path
		if settingsPath == "" {
			settingsPath = settings.DefaultPath()
		}
		store := settings.Load(settingsPath)
		aliases := store.Snapshot().PrinterAliases

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tALIAS\tDEFAULT\tSTATUS\tPAPER\tCUT IP")
		for _, p := range printers {
			width := cfg.Jobs.DefaultPaperWidth
			if configured, ok := store.PaperWidth(p.Name); ok {
				width = configured
			}
			ip := cfg.Printers.DefaultIP
			if configured, ok := store.PrinterIP(p.Name); ok {
				ip = configured
			}
			isDefault := ""
			if p.IsDefault {
				isDefault = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dmm\t%s\n", p.Name, aliases[p.Name], isDefault, p.Status, width, ip)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(printersCmd)
}
