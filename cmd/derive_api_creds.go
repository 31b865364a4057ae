package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/execution"
	"github.com/crossvenue/prediction-arb/internal/signing"
	"github.com/crossvenue/prediction-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var deriveAPICredsCmd = &cobra.Command{
	Use:   "derive-api-creds",
	Short: "Derive Polymarket L2 API credentials from your signing key",
	Long: `Signs the CLOB authentication message with POLYMARKET_PRIVATE_KEY
and asks the exchange for the matching API key, secret and passphrase.
Put the returned values in POLYMARKET_API_KEY, POLYMARKET_SECRET and
POLYMARKET_PASSPHRASE to enable live order placement.`,
	RunE: runDeriveAPICreds,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(deriveAPICredsCmd)
}

func runDeriveAPICreds(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.PolymarketPrivateKey == "" {
		return fmt.Errorf("POLYMARKET_PRIVATE_KEY is not set")
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	signer, err := signing.NewSigner(cfg.PolymarketPrivateKey)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	client := execution.NewCLOBClient(&execution.CLOBConfig{
		BaseURL: cfg.PolymarketClobURL,
		Signer:  signer,
		Logger:  logger,
	})

	creds, err := client.DeriveAPICreds(cmd.Context())
	if err != nil {
		return fmt.Errorf("derive api creds: %w", err)
	}

	logger.Info("api-creds-derived", zap.String("address", signer.Address().Hex()))

	fmt.Printf("POLYMARKET_API_KEY=%s\n", creds.APIKey)
	fmt.Printf("POLYMARKET_SECRET=%s\n", creds.Secret)
	fmt.Printf("POLYMARKET_PASSPHRASE=%s\n", creds.Passphrase)
	return nil
}
