package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeLive bool

//nolint:gochecknoglobals // Cobra boilerplate
var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run one execution cycle now",
	Long: `Runs a single scan-select-place cycle immediately, regardless of the
bot toggle. Without --live the cycle sizes trades from the configured trade
amount and records simulated legs; with --live it checks balances and places
real orders on both venues.`,
	RunE: runExecute,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeCmd)
	executeCmd.Flags().BoolVar(&executeLive, "live", false, "Place real orders instead of simulating")
}

func runExecute(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	result, err := application.Orchestrator().Execute(cmd.Context(), executeLive)
	if err != nil {
		return err
	}
	return printJSON(result)
}
