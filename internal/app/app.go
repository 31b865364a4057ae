// Package app wires configuration into the running service: venue clients,
// matcher, evaluator, executor, ledger, balance service, push hub and the
// HTTP surface.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/balance"
	"github.com/crossvenue/prediction-arb/internal/circuitbreaker"
	"github.com/crossvenue/prediction-arb/internal/execution"
	"github.com/crossvenue/prediction-arb/internal/ledger"
	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/internal/notify"
	"github.com/crossvenue/prediction-arb/internal/orchestrator"
	"github.com/crossvenue/prediction-arb/internal/signing"
	"github.com/crossvenue/prediction-arb/internal/venues/kalshi"
	"github.com/crossvenue/prediction-arb/internal/venues/polymarket"
	"github.com/crossvenue/prediction-arb/pkg/cache"
	"github.com/crossvenue/prediction-arb/pkg/config"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
	"github.com/crossvenue/prediction-arb/pkg/httpserver"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// App is the composed service.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	probe        *healthprobe.Probe
	httpServer   *httpserver.Server
	orch         *orchestrator.Orchestrator
	store        *ledgerHandles
	balances     *balance.Service
	balanceCache cache.Cache
	hub          *notify.Hub
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// ledgerHandles groups the three ledger roles behind one backing store.
type ledgerHandles struct {
	trades   ledger.TradeLedger
	settings ledger.SettingsStore
	locker   ledger.AdvisoryLocker
	closer   func() error
}

// New creates a fully wired application.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	store, err := setupLedger(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger: %w", err)
	}

	balanceCache, err := cache.NewRistrettoCache(cache.DefaultRistrettoConfig(logger))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	kalshiClient, err := setupKalshiClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup kalshi client: %w", err)
	}

	pmSigner, err := setupPolymarketSigner(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup polymarket signer: %w", err)
	}

	balances := setupBalances(cfg, logger, balanceCache, kalshiClient, pmSigner)
	executor := setupExecutor(cfg, logger, pmSigner, kalshiClient)
	hub := notify.NewHub(logger)

	orch := orchestrator.New(orchestrator.Deps{
		Polymarket: guardedPolymarket(cfg, logger),
		Kalshi:     guardedKalshi(cfg, logger, kalshiClient),
		Matcher:    matching.NewEngine(cfg.MatchMinScore, logger),
		Evaluator:  arbitrage.NewEvaluator(logger),
		Executor:   executor,
		Trades:     store.trades,
		Settings:   store.settings,
		Locker:     store.locker,
		Balances:   balances,
		Notifier:   hub,
		Logger:     logger,
	}, orchestrator.Config{
		MinBalance:      cfg.ExecMinBalance,
		MinTradeSize:    cfg.ExecMinTradeSize,
		MaxSlots:        cfg.ExecMaxSlots,
		MinHoursLeft:    cfg.ExecMinHoursLeft,
		MaxHoursLeft:    cfg.ExecMaxHoursLeft,
		LiveWindowHours: 48,
	})

	probe := healthprobe.New("prediction-arb")
	httpServer := httpserver.New(&httpserver.Config{
		Port:         cfg.HTTPPort,
		Logger:       logger,
		Probe:        probe,
		Orchestrator: orch,
		Trades:       store.trades,
		Settings:     store.settings,
		Balances:     balances,
		Hub:          hub,
	})

	return &App{
		cfg:          cfg,
		logger:       logger,
		probe:        probe,
		httpServer:   httpServer,
		orch:         orch,
		store:        store,
		balances:     balances,
		balanceCache: balanceCache,
		hub:          hub,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Orchestrator exposes the cycle entry points for CLI commands.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Balances exposes the balance service for CLI commands.
func (a *App) Balances() *balance.Service { return a.balances }

// Settings exposes the settings store for CLI commands.
func (a *App) Settings() ledger.SettingsStore { return a.store.settings }

// Trades exposes the trade ledger for CLI commands.
func (a *App) Trades() ledger.TradeLedger { return a.store.trades }

func setupLedger(cfg *config.Config, logger *zap.Logger) (*ledgerHandles, error) {
	if cfg.StorageMode == "memory" {
		mem := ledger.NewMemoryLedger()
		logger.Info("ledger-mode", zap.String("mode", "memory"))
		return &ledgerHandles{trades: mem, settings: mem, locker: mem, closer: mem.Close}, nil
	}

	pg, err := ledger.NewPostgresLedger(&ledger.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return &ledgerHandles{trades: pg, settings: pg, locker: pg, closer: pg.Close}, nil
}

func setupKalshiClient(cfg *config.Config, logger *zap.Logger) (*kalshi.Client, error) {
	var signer *signing.RSASigner

	if cfg.HasKalshiCredentials() {
		pemBytes := []byte(cfg.KalshiPrivateKeyPEM)
		if len(pemBytes) == 0 {
			var err error
			pemBytes, err = os.ReadFile(cfg.KalshiPrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("read kalshi key file: %w", err)
			}
		}

		key, err := signing.ParseRSAPrivateKey(pemBytes)
		if err != nil {
			return nil, err
		}

		signer, err = signing.NewRSASigner(cfg.KalshiAPIKeyID, key)
		if err != nil {
			return nil, err
		}
		logger.Info("kalshi-signer-configured", zap.String("key-id", cfg.KalshiAPIKeyID))
	}

	return kalshi.NewClient(cfg.KalshiBaseURL, signer, logger), nil
}

func setupPolymarketSigner(cfg *config.Config) (*signing.Signer, error) {
	if cfg.PolymarketPrivateKey == "" {
		return nil, nil
	}
	return signing.NewSigner(cfg.PolymarketPrivateKey)
}

func setupBalances(
	cfg *config.Config,
	logger *zap.Logger,
	balanceCache cache.Cache,
	kalshiClient *kalshi.Client,
	pmSigner *signing.Signer,
) *balance.Service {
	proxyAddress := cfg.PolymarketProxyAddress
	if proxyAddress == "" && pmSigner != nil {
		proxyAddress = signing.DeriveProxyAddress(pmSigner.Address()).Hex()
	}

	var kalshiFetcher balance.KalshiBalanceFetcher
	if cfg.HasKalshiCredentials() {
		kalshiFetcher = kalshiClient
	}

	rpcURL := ""
	if proxyAddress != "" {
		rpcURL = cfg.PolygonRPCURL
	}

	return balance.NewService(&balance.Config{
		PolygonRPCURL: rpcURL,
		DataAPIURL:    cfg.PolymarketDataURL,
		ProxyAddress:  proxyAddress,
		Kalshi:        kalshiFetcher,
		Cache:         balanceCache,
		CacheTTL:      cfg.BalanceCacheTTL,
		Logger:        logger,
	})
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	pmSigner *signing.Signer,
	kalshiClient *kalshi.Client,
) *execution.Executor {
	var pmPlacer execution.PolymarketPlacer
	if cfg.HasPolymarketCredentials() && pmSigner != nil {
		pmPlacer = execution.NewCLOBClient(&execution.CLOBConfig{
			BaseURL: cfg.PolymarketClobURL,
			Signer:  pmSigner,
			Creds: signing.L2Creds{
				APIKey:     cfg.PolymarketAPIKey,
				Secret:     cfg.PolymarketSecret,
				Passphrase: cfg.PolymarketPassphrase,
			},
			ProxyAddress:  cfg.PolymarketProxyAddress,
			SignatureType: cfg.PolymarketSignatureType,
			Logger:        logger,
		})
	}

	var kalshiPlacer execution.KalshiPlacer
	if cfg.HasKalshiCredentials() {
		kalshiPlacer = kalshiClient
	}

	return execution.NewExecutor(pmPlacer, kalshiPlacer, logger)
}

// pmSource adapts the Gamma client to the orchestrator source interface,
// binding the configured market limit.
type pmSource struct {
	client *polymarket.Client
	limit  int
}

func (s *pmSource) FetchMarkets(ctx context.Context) ([]types.NormalizedMarket, error) {
	return s.client.FetchMarkets(ctx, s.limit)
}

// kalshiSource binds the configured page budget.
type kalshiSource struct {
	client *kalshi.Client
	pages  int
}

func (s *kalshiSource) FetchMarkets(ctx context.Context) ([]types.NormalizedMarket, error) {
	return s.client.FetchMarkets(ctx, s.pages)
}

func guardedPolymarket(cfg *config.Config, logger *zap.Logger) orchestrator.MarketSource {
	source := &pmSource{
		client: polymarket.NewClient(cfg.PolymarketGammaURL, logger),
		limit:  cfg.ScanMarketLimit,
	}
	return guardVenue(source, types.PlatformPolymarket, logger)
}

func guardedKalshi(cfg *config.Config, logger *zap.Logger, client *kalshi.Client) orchestrator.MarketSource {
	source := &kalshiSource{client: client, pages: cfg.KalshiPageBudget}
	return guardVenue(source, types.PlatformKalshi, logger)
}

func guardVenue(source circuitbreaker.MarketFetcher, venue types.Platform, logger *zap.Logger) orchestrator.MarketSource {
	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		Venue:            venue,
		FailureThreshold: 3,
		Cooldown:         2 * time.Minute,
		Logger:           logger,
	})
	if err != nil {
		// Static config; only reachable if the constants above are broken.
		panic(err)
	}
	return circuitbreaker.Guard(source, breaker)
}
