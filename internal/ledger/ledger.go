// Package ledger defines the persistent collaborators the core depends on:
// the append-only trade ledger and the operator settings store. The core
// never holds process-wide mutable state itself; both are injected.
package ledger

import (
	"context"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// TradeLedger records trade legs and answers capacity/dedup queries.
// Writes are append-only inserts; trade rows are never updated.
type TradeLedger interface {
	// InsertLegPair atomically inserts both legs of one opportunity.
	// The pair invariant (0 or 2 legs per market id, never 1) depends on
	// this being the only write path for legs.
	InsertLegPair(ctx context.Context, legs [2]types.TradeLeg) error

	// OpenPositionCount returns the number of distinct market ids with a
	// working pair (both legs executed or live).
	OpenPositionCount(ctx context.Context) (int, error)

	// HasLegsForMarket reports whether legs already exist for the market
	// id or for the normalized question text. The question comparison
	// guards against id drift between venues for the same market.
	HasLegsForMarket(ctx context.Context, marketID, normalizedQuestion string) (bool, error)

	// RecentLegs returns the most recent legs, newest first.
	RecentLegs(ctx context.Context, limit int) ([]types.TradeLeg, error)

	// Stats aggregates the full ledger for the status action.
	Stats(ctx context.Context) (types.TradeStats, error)

	// Close releases the underlying connection.
	Close() error
}

// SettingsUpdate carries partial settings changes; nil fields are untouched.
type SettingsUpdate struct {
	TradeAmount     *float64
	IntervalMinutes *int
	MinConfidence   *float64
	MaxOpenTrades   *int
}

// SettingsStore holds the single operator settings row.
type SettingsStore interface {
	Get(ctx context.Context) (types.BotSettings, error)
	SetRunning(ctx context.Context, running bool) (types.BotSettings, error)
	Update(ctx context.Context, upd SettingsUpdate) (types.BotSettings, error)
}

// AdvisoryLocker serializes autonomous cycles across processes. The external
// scheduler is expected to invoke one cycle at a time, but the lock makes
// the assumption explicit instead of relying on it.
type AdvisoryLocker interface {
	// TryLock attempts to acquire the named lock without blocking.
	TryLock(ctx context.Context, key int64) (bool, error)
	Unlock(ctx context.Context, key int64) error
}

// AutoTradeLockKey is the advisory lock key guarding auto-trade cycles.
const AutoTradeLockKey int64 = 7_201_113
