package execution

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// PolymarketPlacer submits one BUY order to the Polymarket CLOB.
type PolymarketPlacer interface {
	Ready() bool
	PlaceOrder(ctx context.Context, tokenID string, price, sizeUSD float64) (string, error)
}

// KalshiPlacer submits one limit order to Kalshi.
type KalshiPlacer interface {
	PlaceOrder(ctx context.Context, ticker string, side types.Side, count, priceCents int) (string, error)
}

// Executor turns one opportunity into two trade legs. Both legs are always
// produced; legs that cannot or should not reach a venue come back simulated
// so the ledger still records the full pair.
type Executor struct {
	polymarket PolymarketPlacer
	kalshi     KalshiPlacer
	logger     *zap.Logger
}

// NewExecutor creates an executor. Either placer may be nil; its legs are
// then recorded as simulated.
func NewExecutor(polymarket PolymarketPlacer, kalshi KalshiPlacer, logger *zap.Logger) *Executor {
	return &Executor{
		polymarket: polymarket,
		kalshi:     kalshi,
		logger:     logger,
	}
}

// PlaceLegs sizes the opportunity to budgetUSD and attempts both legs
// sequentially. Leg outcomes are independent: a venue rejection on one leg
// is recorded as failed without blocking the other.
//
// Both returned legs share the Polymarket market id and question; the
// ledger's pair and dedup invariants key off them.
func (e *Executor) PlaceLegs(ctx context.Context, opp arbitrage.Opportunity, budgetUSD float64, live bool) [2]types.TradeLeg {
	units := 0.0
	if opp.TotalCost > 0 {
		units = math.Floor(budgetUSD/opp.TotalCost*100) / 100
	}

	expectedProfit := round4(units * opp.GuaranteedProfit)

	yes := e.placeLeg(ctx, opp, opp.YesLeg, units, expectedProfit/2, live)
	no := e.placeLeg(ctx, opp, opp.NoLeg, units, expectedProfit/2, live)

	e.logger.Info("legs-placed",
		zap.String("opportunity-id", opp.ID),
		zap.Float64("units", units),
		zap.String("yes-status", string(yes.Status)),
		zap.String("no-status", string(no.Status)))

	return [2]types.TradeLeg{yes, no}
}

func (e *Executor) placeLeg(ctx context.Context, opp arbitrage.Opportunity, leg arbitrage.Leg, units, expectedProfit float64, live bool) types.TradeLeg {
	record := types.TradeLeg{
		ID:         uuid.New().String(),
		MarketID:   opp.Polymarket.ID,
		Question:   opp.Polymarket.Question,
		Venue:      leg.Venue,
		Side:       leg.Side,
		Price:      leg.Price,
		Size:       units,
		Status:     types.LegSimulated,
		ProfitLoss: expectedProfit,
		CreatedAt:  time.Now().UTC(),
	}

	if !live || units <= 0 {
		LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegSimulated)).Inc()
		return record
	}

	var orderRef string
	var err error

	switch leg.Venue {
	case types.PlatformPolymarket:
		if e.polymarket == nil || !e.polymarket.Ready() || leg.TokenID == "" {
			LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegSimulated)).Inc()
			return record
		}
		orderRef, err = e.polymarket.PlaceOrder(ctx, leg.TokenID, leg.Price, units*leg.Price)

	case types.PlatformKalshi:
		count := int(units)
		priceCents := int(math.Round(leg.Price * 100))
		if e.kalshi == nil || count < 1 || priceCents < 1 || priceCents > 99 {
			LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegSimulated)).Inc()
			return record
		}
		orderRef, err = e.kalshi.PlaceOrder(ctx, leg.MarketID, leg.Side, count, priceCents)

	default:
		LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegSimulated)).Inc()
		return record
	}

	if err != nil {
		e.logger.Warn("leg-placement-failed",
			zap.String("venue", string(leg.Venue)),
			zap.String("side", string(leg.Side)),
			zap.Error(err))
		record.Status = types.LegFailed
		LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegFailed)).Inc()
		return record
	}

	record.Status = types.LegLive
	record.OrderRef = orderRef
	LegsPlacedTotal.WithLabelValues(string(leg.Venue), string(types.LegLive)).Inc()
	return record
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
