package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks arbitrage opportunities detected.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_opportunities_detected_total",
		Help: "Total number of cross-venue arbitrage opportunities detected",
	})

	// OpportunitySpreadPct tracks spread percentages of detected arbitrage.
	OpportunitySpreadPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_opportunity_spread_pct",
		Help:    "Spread percentage of detected arbitrage opportunities",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
	})
)
