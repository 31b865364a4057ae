package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusLegLimit int

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bot settings, trade stats and recent legs",
	RunE:  runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVarP(&statusLegLimit, "limit", "n", 20, "How many recent legs to show")
}

type statusOutput struct {
	Settings types.BotSettings `json:"settings"`
	Stats    types.TradeStats  `json:"stats"`
	Trades   []types.TradeLeg  `json:"trades"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()

	settings, err := application.Settings().Get(ctx)
	if err != nil {
		return err
	}

	stats, err := application.Trades().Stats(ctx)
	if err != nil {
		return err
	}

	trades, err := application.Trades().RecentLegs(ctx, statusLegLimit)
	if err != nil {
		return err
	}

	return printJSON(statusOutput{Settings: settings, Stats: stats, Trades: trades})
}
