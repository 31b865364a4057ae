package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanLive bool

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan both venues for arbitrage opportunities",
	Long: `Fetches markets from Polymarket and Kalshi, matches equivalent
questions, and prices every matched pair. With --live, only opportunities
resolving within the live window are shown, each annotated with hours
remaining.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVarP(&scanLive, "live", "l", false, "Only show opportunities resolving soon")
}

func runScan(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()

	if scanLive {
		opportunities, err := application.Orchestrator().LiveScan(ctx)
		if err != nil {
			return err
		}
		return printJSON(opportunities)
	}

	result, err := application.Orchestrator().Scan(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}
