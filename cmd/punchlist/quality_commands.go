package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"punchlist/internal/checklist"
	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/faults"
	"punchlist/internal/ledger"
	"punchlist/internal/workflow"
)

func newQualityCommand(ctx *commandContext) *cobra.Command {
	qualityCmd := &cobra.Command{
		Use:   "quality",
		Short: "Quality-side operations: punches, checklist, handover, closure",
	}

	qualityCmd.AddCommand(newPunchCommand(ctx))
	qualityCmd.AddCommand(newChecklistCommand(ctx))
	qualityCmd.AddCommand(newHandoverCommand(ctx))
	qualityCmd.AddCommand(newCloseCabinetCommand(ctx))

	return qualityCmd
}

func newPunchCommand(ctx *commandContext) *cobra.Command {
	punchCmd := &cobra.Command{
		Use:   "punch",
		Short: "Record and resolve punch items",
	}

	punchCmd.AddCommand(newPunchAddCommand(ctx))
	punchCmd.AddCommand(newPunchImplementCommand(ctx))
	punchCmd.AddCommand(newPunchCloseCommand(ctx))
	punchCmd.AddCommand(newPunchListCommand(ctx))

	return punchCmd
}

func newPunchAddCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var reference string
	var description string
	var category string

	cmd := &cobra.Command{
		Use:   "add [cabinetID]",
		Short: "Record a new punch item in the cabinet ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				punch, err := engine.CreatePunch(cmd.Context(), args[0], ledger.Fields{
					Reference:   reference,
					Description: description,
					Category:    category,
				}, actor)
				if err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded punch %d (ref %s)\n", punch.Serial, punch.Reference)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded in the checked-by column")
	cmd.Flags().StringVar(&reference, "ref", "", "Checklist reference the punch belongs to")
	cmd.Flags().StringVar(&description, "desc", "", "Punch description")
	cmd.Flags().StringVar(&category, "category", "", "Punch category")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func newPunchImplementCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var remark string

	cmd := &cobra.Command{
		Use:   "implement [cabinetID] [serial]",
		Short: "Mark a punch item as implemented",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[1])
			}
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.MarkImplemented(cmd.Context(), args[0], serial, actor, remark); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Punch %d marked implemented\n", serial)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded in the implemented-by column")
	cmd.Flags().StringVar(&remark, "remark", "", "Optional remark appended to the punch description")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newPunchCloseCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "close [cabinetID] [serial]",
		Short: "Close an implemented punch item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[1])
			}
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.ClosePunch(cmd.Context(), args[0], serial, actor); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed punch %d\n", serial)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded in the closed-by column")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newPunchListCommand(ctx *commandContext) *cobra.Command {
	var openOnly bool

	cmd := &cobra.Command{
		Use:   "list [cabinetID]",
		Short: "List punch items from the cabinet ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath(args[0]), cfg.Ledger)
			if err != nil {
				return err
			}
			defer led.Close()

			var punches []ledger.Punch
			if openOnly {
				punches, err = led.ListOpen()
			} else {
				punches, err = led.Punches()
			}
			if err != nil {
				return err
			}
			if len(punches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No punch items")
				return nil
			}

			rows := make([][]string, 0, len(punches))
			for _, p := range punches {
				rows = append(rows, []string{
					strconv.Itoa(p.Serial),
					p.Reference,
					p.Description,
					p.Category,
					humanizeStatus(p.State()),
					p.CheckedBy,
					p.ClosedBy,
				})
			}
			tableOut := renderTable(
				[]string{"No.", "Ref", "Description", "Category", "State", "Checked By", "Closed By"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), tableOut)
			return nil
		},
	}

	cmd.Flags().BoolVar(&openOnly, "open", false, "Show only punches that are not yet closed")
	return cmd
}

func newChecklistCommand(ctx *commandContext) *cobra.Command {
	checklistCmd := &cobra.Command{
		Use:   "checklist",
		Short: "Inspect and dispose checklist items",
	}

	checklistCmd.AddCommand(newChecklistPendingCommand(ctx))
	checklistCmd.AddCommand(newChecklistDisposeCommand(ctx))

	return checklistCmd
}

func newChecklistPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending [cabinetID]",
		Short: "List checklist items still awaiting disposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			gate, err := checklist.Open(cfg.LedgerPath(args[0]), cfg.Checklist)
			if err != nil {
				return err
			}
			defer gate.Close()

			items, err := gate.PendingItems(nil)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Checklist is complete")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.Itoa(item.Row),
					item.Reference,
					item.Description,
				})
			}
			tableOut := renderTable(
				[]string{"Row", "Ref", "Description"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), tableOut)
			return nil
		},
	}
}

func newChecklistDisposeCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var status string
	var remark string

	cmd := &cobra.Command{
		Use:   "dispose [cabinetID] [row]",
		Short: "Dispose a checklist item as OK, NOK, or N/A",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid row %q", args[1])
			}
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			gate, err := checklist.Open(cfg.LedgerPath(args[0]), cfg.Checklist)
			if err != nil {
				return err
			}
			defer gate.Close()

			if err := gate.Dispose(row, status, actor, remark); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disposed row %d as %s\n", row, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded against the disposition")
	cmd.Flags().StringVar(&status, "status", checklist.StatusOK, "Disposition status (OK, NOK, N/A)")
	cmd.Flags().StringVar(&remark, "remark", "", "Remark (required for N/A)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newHandoverCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var overrideOpen bool

	cmd := &cobra.Command{
		Use:   "handover [cabinetID]",
		Short: "Hand the cabinet over to production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.HandoverToProduction(cmd.Context(), args[0], actor, overrideOpen); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cabinet %s handed over to production\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded on the handover")
	cmd.Flags().BoolVar(&overrideOpen, "override-open", false, "Hand over even with open punch items")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newCloseCabinetCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var overrideChecklist bool

	cmd := &cobra.Command{
		Use:   "close [cabinetID]",
		Short: "Verify the handback and close the cabinet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.VerifyAndClose(cmd.Context(), args[0], actor, overrideChecklist); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cabinet %s closed\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded on the closure")
	cmd.Flags().BoolVar(&overrideChecklist, "override-checklist", false, "Close despite undisposed checklist items")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

// reportGateError prints the offending items behind a gate violation before
// returning the error, so the operator sees what blocked the step.
func reportGateError(w io.Writer, err error) error {
	if err == nil {
		return nil
	}
	var gateErr *faults.GateError
	if errors.As(err, &gateErr) && len(gateErr.Items) > 0 {
		fmt.Fprintf(w, "%s blocked: %s\n", gateErr.Operation, gateErr.Reason)
		for _, item := range gateErr.Items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
	return err
}
