// Package balance aggregates cash and positions across both venues.
//
// Polymarket cash is on-chain USDC read over Polygon RPC and positions come
// from the Data API; Kalshi cash comes from the authenticated balance
// endpoint. The aggregate feeds the dashboard balance action and the
// orchestrator's sizing gate.
package balance

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/cache"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

const (
	polygonUSDC = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	usdcDecimals = 6

	snapshotCacheKey = "balance:snapshot"
)

// KalshiBalanceFetcher reads the authenticated cash balance in dollars.
type KalshiBalanceFetcher interface {
	GetBalance(ctx context.Context) (float64, error)
}

// Position is one open market position on Polymarket.
type Position struct {
	MarketSlug   string  `json:"marketSlug"`
	Outcome      string  `json:"outcome"`
	Size         float64 `json:"size"`
	Value        float64 `json:"value"`
	InitialValue float64 `json:"initialValue"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
}

// Snapshot is the aggregated cross-venue account view.
type Snapshot struct {
	PolymarketUSDC float64    `json:"polymarketUsdc"`
	KalshiCash     float64    `json:"kalshiCash"`
	Positions      []Position `json:"positions"`
	PositionsValue float64    `json:"positionsValue"`
	PositionsPnL   float64    `json:"positionsPnl"`
	TotalValue     float64    `json:"totalValue"`
	FetchedAt      time.Time  `json:"fetchedAt"`
}

// Config holds balance service configuration.
type Config struct {
	PolygonRPCURL string
	DataAPIURL    string
	ProxyAddress  string
	Kalshi        KalshiBalanceFetcher
	Cache         cache.Cache
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// Service reads and aggregates venue account state.
type Service struct {
	rpcURL     string
	dataAPIURL string
	address    common.Address
	kalshi     KalshiBalanceFetcher
	cache      cache.Cache
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates a balance service. Cache is optional; without it every
// call re-fetches.
func NewService(cfg *Config) *Service {
	return &Service{
		rpcURL:     cfg.PolygonRPCURL,
		dataAPIURL: strings.TrimRight(cfg.DataAPIURL, "/"),
		address:    common.HexToAddress(cfg.ProxyAddress),
		kalshi:     cfg.Kalshi,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     cfg.Logger,
	}
}

// Snapshot returns the aggregated account view, served from cache when a
// recent one exists. Venues that are not configured contribute zero rather
// than failing the whole snapshot.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(snapshotCacheKey); found {
			if snap, ok := cached.(*Snapshot); ok {
				return snap, nil
			}
		}
	}

	snap := &Snapshot{FetchedAt: time.Now().UTC()}

	if s.rpcURL != "" {
		usdc, err := s.polymarketUSDC(ctx)
		if err != nil {
			s.logger.Warn("polymarket-balance-unavailable", zap.Error(err))
		} else {
			snap.PolymarketUSDC = usdc
		}

		positions, err := s.polymarketPositions(ctx)
		if err != nil {
			s.logger.Warn("polymarket-positions-unavailable", zap.Error(err))
		} else {
			snap.Positions = positions
			for _, p := range positions {
				snap.PositionsValue += p.Value
				snap.PositionsPnL += p.CashPnL
			}
		}
	}

	if s.kalshi != nil {
		kalshiCash, err := s.kalshi.GetBalance(ctx)
		if err != nil {
			s.logger.Warn("kalshi-balance-unavailable", zap.Error(err))
		} else {
			snap.KalshiCash = kalshiCash
		}
	}

	snap.TotalValue = snap.PolymarketUSDC + snap.KalshiCash + snap.PositionsValue

	if s.cache != nil {
		s.cache.Set(snapshotCacheKey, snap, s.cacheTTL)
	}

	return snap, nil
}

// TradableBalance returns the cash available for sizing a new hedged pair.
// Both legs fund independently, so the smaller venue balance binds. A venue
// without credentials reports zero, which the caller treats as a skip.
func (s *Service) TradableBalance(ctx context.Context) (float64, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	if snap.PolymarketUSDC < snap.KalshiCash {
		return snap.PolymarketUSDC, nil
	}
	return snap.KalshiCash, nil
}

// Invalidate drops the cached snapshot; called after order placement.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(snapshotCacheKey)
	}
}

// polymarketUSDC reads the proxy wallet's USDC balance over RPC.
func (s *Service) polymarketUSDC(ctx context.Context) (float64, error) {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	raw, err := s.erc20BalanceOf(ctx, client, s.address, polygonUSDC)
	if err != nil {
		return 0, fmt.Errorf("get USDC balance: %w", err)
	}

	return scaleToDollars(raw, usdcDecimals), nil
}

func (s *Service) erc20BalanceOf(
	ctx context.Context,
	client *ethclient.Client,
	owner common.Address,
	tokenAddr string,
) (*big.Int, error) {
	balanceOfABI := `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	msg := ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// dataAPIPosition is the Data API positions response shape.
type dataAPIPosition struct {
	Size         float64 `json:"size"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
}

// polymarketPositions fetches open positions from the Data API.
func (s *Service) polymarketPositions(ctx context.Context) ([]Position, error) {
	url := fmt.Sprintf("%s/positions?user=%s&sizeThreshold=0.01", s.dataAPIURL, s.address.Hex())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.VenueError{
			Venue:      types.PlatformPolymarket,
			StatusCode: resp.StatusCode,
		}
	}

	var apiPositions []dataAPIPosition
	err = json.NewDecoder(resp.Body).Decode(&apiPositions)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	positions := make([]Position, 0, len(apiPositions))
	for _, pos := range apiPositions {
		if pos.Size <= 0 {
			continue
		}
		positions = append(positions, Position{
			MarketSlug:   pos.Slug,
			Outcome:      pos.Outcome,
			Size:         pos.Size,
			Value:        pos.CurrentValue,
			InitialValue: pos.InitialValue,
			CashPnL:      pos.CashPnL,
			PercentPnL:   pos.PercentPnL,
		})
	}

	return positions, nil
}

// scaleToDollars converts a fixed-decimal integer amount to float dollars.
func scaleToDollars(raw *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(raw)
	div := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, div).Float64()
	return out
}
