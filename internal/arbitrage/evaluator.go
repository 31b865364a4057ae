// Package arbitrage evaluates matched cross-venue market pairs for
// risk-free spreads against the $1 guaranteed payout.
package arbitrage

import (
	"math"
	"sort"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// MatchedPair is the evaluator's input: two semantically equivalent markets
// and the match score that paired them.
type MatchedPair struct {
	Polymarket types.NormalizedMarket
	Kalshi     types.NormalizedMarket
	Score      float64
}

// Evaluator computes the cheaper of the two cross-venue hedges per pair.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an arbitrage evaluator.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate picks the cheaper of the two hedges for one matched pair:
//
//	strategy 1: buy YES on Polymarket, buy NO on Kalshi
//	strategy 2: buy YES on Kalshi, buy NO on Polymarket
//
// An exact cost tie keeps strategy 1 (<= comparison, deterministic).
func (e *Evaluator) Evaluate(match MatchedPair, now time.Time) Opportunity {
	pm := match.Polymarket
	k := match.Kalshi

	cost1 := pm.YesPrice + k.NoPrice
	cost2 := k.YesPrice + pm.NoPrice

	var yes, no Leg
	if cost1 <= cost2 {
		yes = Leg{Venue: types.PlatformPolymarket, Side: types.SideYes, Price: pm.YesPrice, MarketID: pm.ID, TokenID: pm.YesTokenID}
		no = Leg{Venue: types.PlatformKalshi, Side: types.SideNo, Price: k.NoPrice, MarketID: k.ID, TokenID: k.NoTokenID}
	} else {
		yes = Leg{Venue: types.PlatformKalshi, Side: types.SideYes, Price: k.YesPrice, MarketID: k.ID, TokenID: k.YesTokenID}
		no = Leg{Venue: types.PlatformPolymarket, Side: types.SideNo, Price: pm.NoPrice, MarketID: pm.ID, TokenID: pm.NoTokenID}
	}

	return newOpportunity(match, yes, no, now)
}

// EvaluateAll evaluates every matched pair and returns opportunities sorted
// by spread percentage, highest first. Non-arb pairs are included so callers
// can surface them for monitoring; only IsArb entries are executable.
func (e *Evaluator) EvaluateAll(matches []MatchedPair, now time.Time) []Opportunity {
	opportunities := make([]Opportunity, 0, len(matches))

	arbCount := 0
	for _, m := range matches {
		opp := e.Evaluate(m, now)
		opportunities = append(opportunities, opp)
		if opp.IsArb {
			arbCount++
			OpportunitiesDetectedTotal.Inc()
			OpportunitySpreadPct.Observe(opp.SpreadPct)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].SpreadPct > opportunities[j].SpreadPct
	})

	e.logger.Debug("evaluation-complete",
		zap.Int("pairs", len(matches)),
		zap.Int("arbitrage", arbCount))

	return opportunities
}

// round4 rounds to 4 decimal places; used for costs and per-unit profit so
// persisted records and downstream comparisons stay deterministic.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// round2 rounds to 2 decimal places; used for percentages.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
