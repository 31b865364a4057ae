package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

func pair(pmYes, pmNo, kYes, kNo float64) MatchedPair {
	return MatchedPair{
		Polymarket: types.NormalizedMarket{
			ID:         "pm-1",
			Question:   "Will the Chiefs win Super Bowl LX?",
			YesPrice:   pmYes,
			NoPrice:    pmNo,
			Platform:   types.PlatformPolymarket,
			YesTokenID: "tok-yes",
			NoTokenID:  "tok-no",
		},
		Kalshi: types.NormalizedMarket{
			ID:       "KXSB-CHIEFS",
			Question: "Chiefs win Super Bowl LX?",
			YesPrice: kYes,
			NoPrice:  kNo,
			Platform: types.PlatformKalshi,
		},
		Score: 0.92,
	}
}

func TestEvaluate_PicksCheaperHedge(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	now := time.Now()

	// Strategy 1 (PM yes + Kalshi no) costs 0.40+0.38=0.78; strategy 2
	// costs 0.58+0.55=1.13.
	opp := e.Evaluate(pair(0.40, 0.55, 0.58, 0.38), now)

	assert.Equal(t, types.PlatformPolymarket, opp.YesLeg.Venue)
	assert.Equal(t, types.SideYes, opp.YesLeg.Side)
	assert.Equal(t, types.PlatformKalshi, opp.NoLeg.Venue)
	assert.Equal(t, types.SideNo, opp.NoLeg.Side)

	assert.Equal(t, 0.78, opp.TotalCost)
	assert.Equal(t, 28.21, opp.SpreadPct)
	assert.Equal(t, 0.22, opp.GuaranteedProfit)
	assert.True(t, opp.IsArb)
	assert.Equal(t, now, opp.DetectedAt)
}

func TestEvaluate_PrefersStrategyTwoWhenCheaper(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	// Strategy 1 costs 0.60+0.55=1.15; strategy 2 costs 0.35+0.45=0.80.
	opp := e.Evaluate(pair(0.60, 0.45, 0.35, 0.55), time.Now())

	assert.Equal(t, types.PlatformKalshi, opp.YesLeg.Venue)
	assert.Equal(t, types.PlatformPolymarket, opp.NoLeg.Venue)
	assert.Equal(t, 0.80, opp.TotalCost)
	assert.True(t, opp.IsArb)
}

func TestEvaluate_CostTieKeepsStrategyOne(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	// Both hedges cost 0.90 exactly.
	opp := e.Evaluate(pair(0.45, 0.45, 0.45, 0.45), time.Now())

	assert.Equal(t, types.PlatformPolymarket, opp.YesLeg.Venue)
	assert.Equal(t, types.PlatformKalshi, opp.NoLeg.Venue)
}

func TestEvaluate_NoArbWhenCostAtOrAboveOne(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	tests := []struct {
		name string
		p    MatchedPair
		cost float64
	}{
		{"cost exactly one", pair(0.50, 0.52, 0.55, 0.50), 1.0},
		{"cost above one", pair(0.60, 0.60, 0.60, 0.60), 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := e.Evaluate(tt.p, time.Now())
			assert.Equal(t, tt.cost, opp.TotalCost)
			assert.False(t, opp.IsArb)
			assert.LessOrEqual(t, opp.SpreadPct, 0.0)
		})
	}
}

func TestEvaluate_LegCarriesTokenID(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	opp := e.Evaluate(pair(0.40, 0.55, 0.58, 0.38), time.Now())

	assert.Equal(t, "tok-yes", opp.YesLeg.TokenID)
	assert.Equal(t, "pm-1", opp.YesLeg.MarketID)
	assert.Equal(t, "KXSB-CHIEFS", opp.NoLeg.MarketID)
}

func TestEvaluateAll_SortsBySpreadDescending(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	matches := []MatchedPair{
		pair(0.50, 0.50, 0.50, 0.45), // cost 0.95
		pair(0.40, 0.55, 0.58, 0.38), // cost 0.78
		pair(0.60, 0.60, 0.60, 0.60), // cost 1.2, not arb
	}

	opportunities := e.EvaluateAll(matches, time.Now())

	require.Len(t, opportunities, 3)
	assert.Equal(t, 0.78, opportunities[0].TotalCost)
	assert.Equal(t, 0.95, opportunities[1].TotalCost)
	assert.False(t, opportunities[2].IsArb)

	for i := 1; i < len(opportunities); i++ {
		assert.GreaterOrEqual(t, opportunities[i-1].SpreadPct, opportunities[i].SpreadPct)
	}
}

func TestEvaluateAll_Empty(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	assert.Empty(t, e.EvaluateAll(nil, time.Now()))
}
