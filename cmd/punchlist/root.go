package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"punchlist/internal/config"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:           "punchlist",
		Short:         "Cabinet inspection workflow: punch ledger, checklist, and dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ctx.configPath, "config", "", "path to config file")

	root.AddCommand(newConfigCommand(ctx))
	root.AddCommand(newQualityCommand(ctx))
	root.AddCommand(newProductionCommand(ctx))
	root.AddCommand(newDashboardCommand(ctx))

	return root
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage punchlist configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledger_dir:      %s\n", cfg.Paths.LedgerDir)
			fmt.Fprintf(out, "session_dir:     %s\n", cfg.Paths.SessionDir)
			fmt.Fprintf(out, "drawing_dir:     %s\n", cfg.Paths.DrawingDir)
			fmt.Fprintf(out, "dashboard_db:    %s\n", cfg.Paths.DashboardDB)
			fmt.Fprintf(out, "ledger sheet:    %s (data from row %d)\n", cfg.Ledger.SheetName, cfg.Ledger.FirstDataRow)
			fmt.Fprintf(out, "checklist sheet: %s (data from row %d)\n", cfg.Checklist.SheetName, cfg.Checklist.FirstDataRow)
			fmt.Fprintf(out, "closure variant: require_implemented=%t\n", cfg.Workflow.RequireImplementedBeforeClose)
			return nil
		},
	})

	return configCmd
}
