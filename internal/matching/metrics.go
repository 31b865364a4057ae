package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchesFoundTotal tracks cross-venue matches above the threshold.
	MatchesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_matches_found_total",
		Help: "Total number of cross-venue market matches above the score threshold",
	})

	// MatchScore tracks the distribution of accepted match scores.
	MatchScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_match_score",
		Help:    "Score of accepted cross-venue market matches",
		Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
	})
)
