// Package cli implements ledgerctl, the operator tool for running the
// settlement jobs by hand and inspecting balances.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fretehub/credit-ledger/internal/app"
	"github.com/fretehub/credit-ledger/internal/config"
	"github.com/fretehub/credit-ledger/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the prepaid credit ledger",
	Long: `ledgerctl runs the reconciliation sweep and the correction backfill
outside the scheduler, shows client balances and issues API tokens.
Configuration is read from the same environment variables as the API server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp builds the dependencies for one command and tears them down after it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	log := logger.NewWithWriter(cfg.Env, cmd.ErrOrStderr())
	slog.SetDefault(log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
