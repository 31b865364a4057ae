package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the arbitrage bot, which will:
1. Serve the dashboard action API and trade push WebSocket
2. Run auto-trade cycles on the configured interval while the bot is enabled
3. Record every placed leg pair in the trade ledger

The bot starts disabled; enable it with 'prediction-arb toggle --on' or the
toggle action on the API.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
