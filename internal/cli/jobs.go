package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fretehub/credit-ledger/internal/app"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(balanceCmd)

	backfillCmd.Flags().Bool("dry-run", false, "Report what would be reversed without deleting anything")
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Settle every blocked reservation once",
	Long: `Run one reconciliation sweep: every blocked transaction is checked
against the shipment system and marked consumed, released or left pending.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rep, err := a.Sweep.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Reverse consumptions whose shipment was never dispatched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rep, err := a.Backfill.Run(ctx, dryRun)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if rep.Failed > 0 {
				return fmt.Errorf("%d item(s) failed", rep.Failed)
			}
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance CLIENT_ID",
	Short: "Show a client's balance computed from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Balance.Current(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		})
	},
}
