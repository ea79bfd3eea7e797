package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fretehub/credit-ledger/internal/auth"
	"github.com/fretehub/credit-ledger/internal/config"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("role", auth.RolePartner, "Token role (partner|admin)")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "Token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token SUBJECT",
	Short: "Issue a bearer token for a partner integration or an operator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		cfg := config.Load()
		tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
		tok, exp, err := tm.Issue(args[0], role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
		return nil
	},
}
