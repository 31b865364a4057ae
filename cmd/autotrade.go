package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var autoTradeCmd = &cobra.Command{
	Use:   "auto-trade",
	Short: "Run one auto-trade cycle now",
	Long: `Runs a single auto-trade cycle through the same gates the scheduler
uses: the bot must be enabled, the cycle lock must be free, and capacity,
balance and sizing checks all apply. A gated cycle reports its skip reason
rather than failing.`,
	RunE: runAutoTrade,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(autoTradeCmd)
}

func runAutoTrade(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	result, err := application.Orchestrator().AutoTrade(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(result)
}
