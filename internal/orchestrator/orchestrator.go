// Package orchestrator runs the scan and auto-trade cycles: fetch both
// venues, match, evaluate, gate, execute, record. Each cycle fetches fresh
// data and recomputes from scratch; the only shared mutable state is the
// injected ledger.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/ledger"
	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// Skip reasons reported by a cycle that placed no trades. These are expected
// outcomes, not errors; the dashboard displays them verbatim.
const (
	SkipNotRunning      = "Bot is not running"
	SkipCycleInProgress = "Another auto-trade cycle is in progress"
	SkipCapacity        = "Max open trades reached"
	SkipLowBalance      = "Insufficient balance"
	SkipSizeTooSmall    = "Trade size too small"
	SkipNoQualifying    = "No qualifying markets"
	SkipAllTraded       = "All candidates already traded"
)

// MarketSource fetches one venue's normalized market list.
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]types.NormalizedMarket, error)
}

// BalanceSource reports the cash available for sizing a new pair.
type BalanceSource interface {
	TradableBalance(ctx context.Context) (float64, error)
}

// LegPlacer turns one opportunity into its two trade legs.
type LegPlacer interface {
	PlaceLegs(ctx context.Context, opp arbitrage.Opportunity, budgetUSD float64, live bool) [2]types.TradeLeg
}

// Notifier announces an inserted leg pair to subscribers. May be nil.
type Notifier interface {
	TradeExecuted(legs [2]types.TradeLeg)
}

// Config holds orchestrator gates and windows.
type Config struct {
	// MinBalance is the operating floor; below it live cycles skip.
	MinBalance float64
	// MinTradeSize is the smallest per-opportunity budget worth placing.
	MinTradeSize float64
	// MaxSlots caps concurrent new positions per cycle.
	MaxSlots int
	// MinHoursLeft/MaxHoursLeft bound the resolution window: not expiring
	// too soon to fill, not so far out that capital sits idle.
	MinHoursLeft float64
	MaxHoursLeft float64
	// LiveWindowHours bounds the live_scan near-term view.
	LiveWindowHours float64
}

// Orchestrator wires venues, matcher, evaluator, executor and ledger into
// the cycle state machine.
type Orchestrator struct {
	polymarket MarketSource
	kalshi     MarketSource
	matcher    *matching.Engine
	evaluator  *arbitrage.Evaluator
	executor   LegPlacer
	trades     ledger.TradeLedger
	settings   ledger.SettingsStore
	locker     ledger.AdvisoryLocker
	balances   BalanceSource
	notifier   Notifier
	cfg        Config
	logger     *zap.Logger
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Polymarket MarketSource
	Kalshi     MarketSource
	Matcher    *matching.Engine
	Evaluator  *arbitrage.Evaluator
	Executor   LegPlacer
	Trades     ledger.TradeLedger
	Settings   ledger.SettingsStore
	Locker     ledger.AdvisoryLocker
	Balances   BalanceSource
	Notifier   Notifier
	Logger     *zap.Logger
}

// New creates an orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	return &Orchestrator{
		polymarket: deps.Polymarket,
		kalshi:     deps.Kalshi,
		matcher:    deps.Matcher,
		evaluator:  deps.Evaluator,
		executor:   deps.Executor,
		trades:     deps.Trades,
		settings:   deps.Settings,
		locker:     deps.Locker,
		balances:   deps.Balances,
		notifier:   deps.Notifier,
		cfg:        cfg,
		logger:     deps.Logger,
	}
}

// ScanResult is the output of one scan pipeline run.
type ScanResult struct {
	PolymarketCount int                     `json:"polymarketCount"`
	KalshiCount     int                     `json:"kalshiCount"`
	Matches         int                     `json:"matches"`
	Opportunities   []arbitrage.Opportunity `json:"opportunities"`
	ScannedAt       time.Time               `json:"scannedAt"`
}

// Scan fetches both venues in parallel, matches and evaluates. A failure on
// either venue fails the whole scan; there is no partial-venue scanning.
func (o *Orchestrator) Scan(ctx context.Context) (*ScanResult, error) {
	started := time.Now()

	var pmMarkets, kMarkets []types.NormalizedMarket

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pmMarkets, err = o.polymarket.FetchMarkets(gctx)
		if err != nil {
			return fmt.Errorf("polymarket fetch: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		kMarkets, err = o.kalshi.FetchMarkets(gctx)
		if err != nil {
			return fmt.Errorf("kalshi fetch: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	matches := o.matcher.MatchMarkets(pmMarkets, kMarkets)
	pairs := make([]arbitrage.MatchedPair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, arbitrage.MatchedPair{
			Polymarket: m.Polymarket,
			Kalshi:     m.Kalshi,
			Score:      m.Score,
		})
	}

	opportunities := o.evaluator.EvaluateAll(pairs, time.Now().UTC())

	ScansTotal.Inc()
	o.logger.Info("scan-complete",
		zap.Int("polymarket-markets", len(pmMarkets)),
		zap.Int("kalshi-markets", len(kMarkets)),
		zap.Int("matches", len(matches)),
		zap.Int("opportunities", len(opportunities)),
		zap.Duration("elapsed", time.Since(started)))

	return &ScanResult{
		PolymarketCount: len(pmMarkets),
		KalshiCount:     len(kMarkets),
		Matches:         len(matches),
		Opportunities:   opportunities,
		ScannedAt:       time.Now().UTC(),
	}, nil
}

// LiveOpportunity is an opportunity annotated with time to resolution, for
// the near-term live view.
type LiveOpportunity struct {
	arbitrage.Opportunity
	HoursRemaining float64 `json:"hoursRemaining"`
}

// LiveScan runs a scan and keeps only opportunities resolving within the
// configured near-term window, soonest resolution first.
func (o *Orchestrator) LiveScan(ctx context.Context) ([]LiveOpportunity, error) {
	scan, err := o.Scan(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live := make([]LiveOpportunity, 0, len(scan.Opportunities))
	for _, opp := range scan.Opportunities {
		hours, ok := opportunityHours(opp, now)
		if !ok || hours <= 0 || hours > o.cfg.LiveWindowHours {
			continue
		}
		live = append(live, LiveOpportunity{Opportunity: opp, HoursRemaining: hours})
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].HoursRemaining < live[j].HoursRemaining
	})

	return live, nil
}

// CycleResult summarizes one execute or auto-trade cycle.
type CycleResult struct {
	Executed     bool             `json:"executed"`
	SkipReason   string           `json:"skipReason,omitempty"`
	Considered   int              `json:"considered"`
	TradesPlaced int              `json:"tradesPlaced"`
	PerTradeSize float64          `json:"perTradeSize"`
	Legs         []types.TradeLeg `json:"legs,omitempty"`
	CompletedAt  time.Time        `json:"completedAt"`
}

func skipped(reason string, considered int) *CycleResult {
	CycleSkipsTotal.WithLabelValues(reason).Inc()
	return &CycleResult{
		SkipReason:  reason,
		Considered:  considered,
		CompletedAt: time.Now().UTC(),
	}
}

// AutoTrade runs one autonomous cycle: settings gate, advisory lock, then
// the execute pipeline with live order placement.
func (o *Orchestrator) AutoTrade(ctx context.Context) (*CycleResult, error) {
	settings, err := o.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if !settings.IsRunning {
		return skipped(SkipNotRunning, 0), nil
	}

	if o.locker != nil {
		acquired, err := o.locker.TryLock(ctx, ledger.AutoTradeLockKey)
		if err != nil {
			return nil, fmt.Errorf("acquire cycle lock: %w", err)
		}
		if !acquired {
			return skipped(SkipCycleInProgress, 0), nil
		}
		defer func() {
			unlockErr := o.locker.Unlock(ctx, ledger.AutoTradeLockKey)
			if unlockErr != nil {
				o.logger.Warn("cycle-unlock-failed", zap.Error(unlockErr))
			}
		}()
	}

	return o.runCycle(ctx, settings, true)
}

// Execute runs the cycle pipeline once on demand. With live=false it sizes
// from settings and records simulated legs without touching venues.
func (o *Orchestrator) Execute(ctx context.Context, live bool) (*CycleResult, error) {
	settings, err := o.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return o.runCycle(ctx, settings, live)
}

// ExecuteOpportunity places and records one caller-supplied opportunity,
// bypassing selection but not the dedup check. Used by the execute action
// when the dashboard submits a specific pair.
func (o *Orchestrator) ExecuteOpportunity(ctx context.Context, opp arbitrage.Opportunity, sizeUSD float64, live bool) ([2]types.TradeLeg, error) {
	traded, err := o.trades.HasLegsForMarket(ctx, opp.Polymarket.ID, matching.NormalizeText(opp.Polymarket.Question))
	if err != nil {
		return [2]types.TradeLeg{}, fmt.Errorf("dedup check: %w", err)
	}
	if traded {
		return [2]types.TradeLeg{}, fmt.Errorf("market %s already has recorded legs", opp.Polymarket.ID)
	}

	legs := o.executor.PlaceLegs(ctx, opp, sizeUSD, live)

	err = o.trades.InsertLegPair(ctx, legs)
	if err != nil {
		return [2]types.TradeLeg{}, err
	}

	if o.notifier != nil {
		o.notifier.TradeExecuted(legs)
	}
	return legs, nil
}

func (o *Orchestrator) runCycle(ctx context.Context, settings types.BotSettings, live bool) (*CycleResult, error) {
	// Capacity gate.
	open, err := o.trades.OpenPositionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open positions: %w", err)
	}
	slotsAvailable := settings.MaxOpenTrades - open
	if slotsAvailable <= 0 {
		return skipped(SkipCapacity, 0), nil
	}

	slots := slotsAvailable
	if o.cfg.MaxSlots > 0 && o.cfg.MaxSlots < slots {
		slots = o.cfg.MaxSlots
	}

	// Balance gate and sizing. Dry runs size from settings instead of cash.
	perTradeSize := settings.TradeAmount
	if live {
		balance, err := o.balances.TradableBalance(ctx)
		if err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		if balance < o.cfg.MinBalance {
			return skipped(SkipLowBalance, 0), nil
		}

		perTradeSize = balance / float64(slots)
		if half := balance * 0.5; half < perTradeSize {
			perTradeSize = half
		}
		if perTradeSize < o.cfg.MinTradeSize {
			return skipped(SkipSizeTooSmall, 0), nil
		}
	}

	// Opportunity selection.
	scan, err := o.Scan(ctx)
	if err != nil {
		return nil, err
	}

	minSpread := (1 - settings.MinConfidence) * 100
	now := time.Now().UTC()

	qualifying := make([]arbitrage.Opportunity, 0, len(scan.Opportunities))
	for _, opp := range scan.Opportunities {
		if !opp.IsArb || opp.SpreadPct < minSpread {
			continue
		}
		if !o.withinResolutionWindow(opp, now) {
			continue
		}
		qualifying = append(qualifying, opp)
	}
	if len(qualifying) == 0 {
		return skipped(SkipNoQualifying, len(scan.Opportunities)), nil
	}

	selected := make([]arbitrage.Opportunity, 0, slots)
	for _, opp := range qualifying {
		if len(selected) == slots {
			break
		}
		traded, err := o.trades.HasLegsForMarket(ctx, opp.Polymarket.ID, matching.NormalizeText(opp.Polymarket.Question))
		if err != nil {
			return nil, fmt.Errorf("dedup check: %w", err)
		}
		if !traded {
			selected = append(selected, opp)
		}
	}
	if len(selected) == 0 {
		return skipped(SkipAllTraded, len(qualifying)), nil
	}

	// Execution is sequential across opportunities so dedup and balance
	// accounting stay consistent. A ledger write failure aborts the cycle.
	result := &CycleResult{
		Executed:     true,
		Considered:   len(qualifying),
		PerTradeSize: perTradeSize,
	}

	for _, opp := range selected {
		legs := o.executor.PlaceLegs(ctx, opp, perTradeSize, live)

		err = o.trades.InsertLegPair(ctx, legs)
		if err != nil {
			return nil, err
		}

		result.TradesPlaced++
		result.Legs = append(result.Legs, legs[0], legs[1])

		if o.notifier != nil {
			o.notifier.TradeExecuted(legs)
		}

		o.logger.Info("opportunity-executed",
			zap.String("opportunity-id", opp.ID),
			zap.Float64("spread-pct", opp.SpreadPct),
			zap.Float64("size", perTradeSize))
	}

	CyclesExecutedTotal.Inc()
	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// withinResolutionWindow checks the bounded execution window. Markets with
// no known end time pass; the venues do not always publish one.
func (o *Orchestrator) withinResolutionWindow(opp arbitrage.Opportunity, now time.Time) bool {
	hours, ok := opportunityHours(opp, now)
	if !ok {
		return true
	}
	return hours >= o.cfg.MinHoursLeft && hours <= o.cfg.MaxHoursLeft
}

// opportunityHours returns hours until the earliest known resolution of the
// pair's two markets.
func opportunityHours(opp arbitrage.Opportunity, now time.Time) (float64, bool) {
	hours := 0.0
	found := false
	for _, m := range []types.NormalizedMarket{opp.Polymarket, opp.Kalshi} {
		if !m.HasEndTime() {
			continue
		}
		h := m.HoursToResolution(now)
		if !found || h < hours {
			hours = h
		}
		found = true
	}
	return hours, found
}
