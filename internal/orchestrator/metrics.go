package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ScansTotal counts completed scan pipeline runs.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_scans_total",
		Help: "Total number of completed cross-venue scans",
	})

	// CyclesExecutedTotal counts cycles that placed at least one pair.
	CyclesExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_cycles_executed_total",
		Help: "Total number of cycles that executed trades",
	})

	// CycleSkipsTotal counts skipped cycles by reason.
	CycleSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_cycle_skips_total",
		Help: "Total number of skipped cycles, by reason",
	}, []string{"reason"})
)
