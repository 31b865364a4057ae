package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/app"
	"github.com/crossvenue/prediction-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "prediction-arb",
	Short: "Cross-venue prediction market arbitrage bot",
	Long: `Arbitrage bot that scans Polymarket and Kalshi for equivalent
binary markets, matches them by question text, and surfaces pairs where
buying YES on one venue and NO on the other costs less than the $1 payout.

Trades can be placed live on both venues or simulated, and every placed
leg is recorded in the trade ledger.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newApp loads .env plus environment config and builds the wired application.
func newApp() (*app.App, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create app: %w", err)
	}

	return application, logger, nil
}

// printJSON renders command output for terminal use.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
