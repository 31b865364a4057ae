package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show balances on both venues",
	Long: `Displays the Polymarket USDC balance and open positions alongside
the Kalshi cash balance. Venues without configured credentials report zero.`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	snapshot, err := application.Balances().Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(snapshot)
}
