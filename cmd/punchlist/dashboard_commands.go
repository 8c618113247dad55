package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/workflow"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Supervisory view over all cabinets",
	}

	dashboardCmd.AddCommand(newDashboardListCommand(ctx))
	dashboardCmd.AddCommand(newDashboardShowCommand(ctx))
	dashboardCmd.AddCommand(newDashboardRefreshCommand(ctx))

	return dashboardCmd
}

func newDashboardListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all cabinets with punch counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, _ *workflow.Engine, store *dashboard.Store) error {
				cabinets, err := store.ListCabinets(cmd.Context())
				if err != nil {
					return err
				}
				if len(cabinets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cabinets tracked")
					return nil
				}

				rows := make([][]string, 0, len(cabinets))
				for _, cab := range cabinets {
					rows = append(rows, []string{
						cab.CabinetID,
						cab.ProjectName,
						humanizeStatus(cab.Status),
						strconv.Itoa(cab.OpenPunches),
						strconv.Itoa(cab.ImplementedPunches),
						strconv.Itoa(cab.ClosedPunches),
						strconv.Itoa(cab.TotalPunches),
						cab.LastUpdated.Format(time.RFC3339),
					})
				}
				tableOut := renderTable(
					[]string{"Cabinet", "Project", "Status", "Open", "Implemented", "Closed", "Total", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), tableOut)
				return nil
			})
		},
	}
}

func newDashboardShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [cabinetID]",
		Short: "Show one cabinet record with transfer state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, _ *workflow.Engine, store *dashboard.Store) error {
				cab, err := store.GetCabinet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if cab == nil {
					return fmt.Errorf("cabinet %s is not tracked", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cabinet:      %s\n", cab.CabinetID)
				fmt.Fprintf(out, "Project:      %s\n", cab.ProjectName)
				fmt.Fprintf(out, "Sales order:  %s\n", cab.SalesOrderNo)
				fmt.Fprintf(out, "Location:     %s\n", cab.StorageLocation)
				fmt.Fprintf(out, "Status:       %s\n", humanizeStatus(cab.Status))
				fmt.Fprintf(out, "Punches:      %d total, %d open, %d implemented, %d closed\n",
					cab.TotalPunches, cab.OpenPunches, cab.ImplementedPunches, cab.ClosedPunches)
				fmt.Fprintf(out, "Pages:        %d annotated of %d\n", cab.AnnotatedPages, cab.TotalPages)
				fmt.Fprintf(out, "Ledger:       %s\n", cab.LedgerPath)
				fmt.Fprintf(out, "Last updated: %s\n", cab.LastUpdated.Format(time.RFC3339))

				handover, err := store.ActiveHandover(cmd.Context(), cab.CabinetID)
				if err != nil {
					return err
				}
				if handover != nil {
					fmt.Fprintf(out, "Handover:     %s (requested by %s at %s)\n",
						humanizeStatus(handover.Status), handover.RequestedBy, handover.RequestedAt.Format(time.RFC3339))
				}
				handback, err := store.ActiveHandback(cmd.Context(), cab.CabinetID)
				if err != nil {
					return err
				}
				if handback != nil {
					fmt.Fprintf(out, "Handback:     %s (requested by %s at %s)\n",
						humanizeStatus(handback.Status), handback.RequestedBy, handback.RequestedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newDashboardRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [cabinetID]",
		Short: "Recount punches from the ledger and update the cabinet record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.RefreshDashboard(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed cabinet %s\n", args[0])
				return nil
			})
		},
	}
}
