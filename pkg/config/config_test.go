package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.PolymarketGammaURL)
	assert.Equal(t, "https://api.elections.kalshi.com/trade-api/v2", cfg.KalshiBaseURL)
	assert.Equal(t, 100, cfg.ScanMarketLimit)
	assert.Equal(t, 0.55, cfg.MatchMinScore)
	assert.Equal(t, 3, cfg.ExecMaxSlots)
	assert.Equal(t, "memory", cfg.StorageMode)
	assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("MATCH_MIN_SCORE", "0.7")
	t.Setenv("STORAGE_MODE", "postgres")
	t.Setenv("KALSHI_PAGE_BUDGET", "10")
	t.Setenv("BALANCE_CACHE_TTL", "2m")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, 0.7, cfg.MatchMinScore)
	assert.Equal(t, "postgres", cfg.StorageMode)
	assert.Equal(t, 10, cfg.KalshiPageBudget)
	assert.Equal(t, 2*time.Minute, cfg.BalanceCacheTTL)
}

func TestLoadFromEnv_BadValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SCAN_MARKET_LIMIT", "not-a-number")
	t.Setenv("BALANCE_CACHE_TTL", "eventually")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.ScanMarketLimit)
	assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort:           "8080",
			PolymarketGammaURL: "https://gamma-api.polymarket.com",
			KalshiBaseURL:      "https://api.elections.kalshi.com/trade-api/v2",
			MatchMinScore:      0.55,
			KalshiPageBudget:   5,
			ExecMaxSlots:       3,
			StorageMode:        "memory",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.HTTPPort = "" }, "HTTP_PORT"},
		{"missing gamma url", func(c *Config) { c.PolymarketGammaURL = "" }, "POLYMARKET_GAMMA_API_URL"},
		{"score out of range", func(c *Config) { c.MatchMinScore = 1.5 }, "MATCH_MIN_SCORE"},
		{"score zero", func(c *Config) { c.MatchMinScore = 0 }, "MATCH_MIN_SCORE"},
		{"zero page budget", func(c *Config) { c.KalshiPageBudget = 0 }, "KALSHI_PAGE_BUDGET"},
		{"zero slots", func(c *Config) { c.ExecMaxSlots = 0 }, "EXEC_MAX_SLOTS"},
		{"unknown storage mode", func(c *Config) { c.StorageMode = "redis" }, "STORAGE_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{"empty defaults to info", "", false},
		{"debug", "debug", false},
		{"warn", "warn", false},
		{"unknown level", "chatty", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestHasCredentials(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasPolymarketCredentials())
	assert.False(t, cfg.HasKalshiCredentials())

	cfg.PolymarketAPIKey = "k"
	cfg.PolymarketSecret = "s"
	cfg.PolymarketPassphrase = "p"
	assert.False(t, cfg.HasPolymarketCredentials())
	cfg.PolymarketPrivateKey = "0xabc"
	assert.True(t, cfg.HasPolymarketCredentials())

	cfg.KalshiAPIKeyID = "id"
	assert.False(t, cfg.HasKalshiCredentials())
	cfg.KalshiPrivateKeyPath = "/tmp/key.pem"
	assert.True(t, cfg.HasKalshiCredentials())
}
