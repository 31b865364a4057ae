package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Polymarket API (venue A)
	PolymarketGammaURL      string
	PolymarketClobURL       string
	PolymarketDataURL       string
	PolymarketAPIKey        string
	PolymarketSecret        string
	PolymarketPassphrase    string
	PolymarketPrivateKey    string
	PolymarketProxyAddress  string
	PolymarketSignatureType int
	PolygonRPCURL           string

	// Kalshi API (venue B)
	KalshiBaseURL        string
	KalshiAPIKeyID       string
	KalshiPrivateKeyPEM  string // inline PEM, takes precedence
	KalshiPrivateKeyPath string
	KalshiPageBudget     int

	// Scan & matching
	ScanMarketLimit int
	MatchMinScore   float64

	// Execution
	ExecMinBalance   float64
	ExecMinTradeSize float64
	ExecMaxSlots     int
	ExecMinHoursLeft float64
	ExecMaxHoursLeft float64

	// Ledger storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Balance cache
	BalanceCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket defaults
		PolymarketGammaURL:      getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketClobURL:       getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketDataURL:       getEnvOrDefault("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		PolymarketAPIKey:        os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:        os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase:    os.Getenv("POLYMARKET_PASSPHRASE"),
		PolymarketPrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		PolymarketProxyAddress:  os.Getenv("POLYMARKET_PROXY_ADDRESS"),
		PolymarketSignatureType: getIntOrDefault("POLYMARKET_SIGNATURE_TYPE", 0),
		PolygonRPCURL:           getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		// Kalshi defaults
		KalshiBaseURL:        getEnvOrDefault("KALSHI_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPEM:  os.Getenv("KALSHI_PRIVATE_KEY_PEM"),
		KalshiPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),
		KalshiPageBudget:     getIntOrDefault("KALSHI_PAGE_BUDGET", 5),

		// Scan defaults
		ScanMarketLimit: getIntOrDefault("SCAN_MARKET_LIMIT", 100),
		MatchMinScore:   getFloat64OrDefault("MATCH_MIN_SCORE", 0.55),

		// Execution defaults
		ExecMinBalance:   getFloat64OrDefault("EXEC_MIN_BALANCE", 1.0),
		ExecMinTradeSize: getFloat64OrDefault("EXEC_MIN_TRADE_SIZE", 0.10),
		ExecMaxSlots:     getIntOrDefault("EXEC_MAX_SLOTS", 3),
		ExecMinHoursLeft: getFloat64OrDefault("EXEC_MIN_HOURS_LEFT", 0.5),
		ExecMaxHoursLeft: getFloat64OrDefault("EXEC_MAX_HOURS_LEFT", 720),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prediction_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		BalanceCacheTTL: getDurationOrDefault("BALANCE_CACHE_TTL", 30*time.Second),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return fmt.Errorf("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.KalshiBaseURL == "" {
		return fmt.Errorf("KALSHI_BASE_URL cannot be empty")
	}

	if c.MatchMinScore <= 0 || c.MatchMinScore > 1.0 {
		return fmt.Errorf("MATCH_MIN_SCORE must be in (0, 1.0], got %f", c.MatchMinScore)
	}

	if c.KalshiPageBudget <= 0 {
		return fmt.Errorf("KALSHI_PAGE_BUDGET must be positive, got %d", c.KalshiPageBudget)
	}

	if c.ExecMaxSlots <= 0 {
		return fmt.Errorf("EXEC_MAX_SLOTS must be positive, got %d", c.ExecMaxSlots)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

// HasPolymarketCredentials reports whether the full L2 credential set and
// signing key are configured.
func (c *Config) HasPolymarketCredentials() bool {
	return c.PolymarketAPIKey != "" &&
		c.PolymarketSecret != "" &&
		c.PolymarketPassphrase != "" &&
		c.PolymarketPrivateKey != ""
}

// HasKalshiCredentials reports whether the Kalshi key id and RSA key source
// are configured.
func (c *Config) HasKalshiCredentials() bool {
	return c.KalshiAPIKeyID != "" &&
		(c.KalshiPrivateKeyPEM != "" || c.KalshiPrivateKeyPath != "")
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
