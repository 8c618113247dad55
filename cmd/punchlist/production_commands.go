package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/workflow"
)

func newProductionCommand(ctx *commandContext) *cobra.Command {
	productionCmd := &cobra.Command{
		Use:   "production",
		Short: "Production-side operations: accept, implement, handback",
	}

	productionCmd.AddCommand(newAcceptCommand(ctx))
	productionCmd.AddCommand(newImplementCommand(ctx))
	productionCmd.AddCommand(newHandbackCommand(ctx))

	return productionCmd
}

func newAcceptCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "accept [cabinetID]",
		Short: "Accept a handed-over cabinet into production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.AcceptIntoProduction(cmd.Context(), args[0], actor); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cabinet %s accepted into production\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded on the acceptance")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newImplementCommand(ctx *commandContext) *cobra.Command {
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

func newHandbackCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "handback [cabinetID]",
		Short: "Hand the cabinet back to quality for closure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, engine *workflow.Engine, _ *dashboard.Store) error {
				if err := engine.HandbackToQuality(cmd.Context(), args[0], actor); err != nil {
					return reportGateError(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cabinet %s handed back to quality\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded on the handback")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
