package arbitrage

import (
	"fmt"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/google/uuid"
)

// Leg describes one side of the cross-venue hedge: which venue to buy on,
// which outcome, and at what quoted price.
type Leg struct {
	Venue    types.Platform `json:"venue"`
	Side     types.Side     `json:"side"`
	Price    float64        `json:"price"`
	MarketID string         `json:"marketId"`
	TokenID  string         `json:"tokenId"`
}

// Opportunity is a matched cross-venue pair evaluated for arbitrage.
// Buying both legs costs TotalCost per unit; resolution pays exactly $1 on
// one of them, so IsArb holds whenever TotalCost < 1.
type Opportunity struct {
	ID               string                 `json:"id"`
	Polymarket       types.NormalizedMarket `json:"polymarket"`
	Kalshi           types.NormalizedMarket `json:"kalshi"`
	MatchScore       float64                `json:"matchScore"`
	YesLeg           Leg                    `json:"yesLeg"`
	NoLeg            Leg                    `json:"noLeg"`
	TotalCost        float64                `json:"totalCost"`
	SpreadPct        float64                `json:"spreadPct"`
	GuaranteedProfit float64                `json:"guaranteedProfit"` // per unit
	IsArb            bool                   `json:"isArb"`
	DetectedAt       time.Time              `json:"detectedAt"`
}

// newOpportunity assembles an Opportunity from the chosen legs.
func newOpportunity(match MatchedPair, yes, no Leg, now time.Time) Opportunity {
	cost := round4(yes.Price + no.Price)

	spreadPct := 0.0
	if cost > 0 {
		spreadPct = round2((1 - cost) / cost * 100)
	}

	return Opportunity{
		ID:               uuid.New().String(),
		Polymarket:       match.Polymarket,
		Kalshi:           match.Kalshi,
		MatchScore:       match.Score,
		YesLeg:           yes,
		NoLeg:            no,
		TotalCost:        cost,
		SpreadPct:        spreadPct,
		GuaranteedProfit: round4(1 - cost),
		IsArb:            cost < 1,
		DetectedAt:       now,
	}
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] score=%.2f yes=%s@%.4f no=%s@%.4f cost=%.4f spread=%.2f%% arb=%t",
		o.ID[:8],
		o.MatchScore,
		o.YesLeg.Venue,
		o.YesLeg.Price,
		o.NoLeg.Venue,
		o.NoLeg.Price,
		o.TotalCost,
		o.SpreadPct,
		o.IsArb,
	)
}
