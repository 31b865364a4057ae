package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// MemoryLedger is an in-process TradeLedger, SettingsStore and
// AdvisoryLocker. It backs the memory storage mode and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	legs     []types.TradeLeg
	settings types.BotSettings
	locks    map[int64]bool
}

// NewMemoryLedger creates an empty in-memory ledger with default settings.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		settings: types.DefaultBotSettings(),
		locks:    make(map[int64]bool),
	}
}

func (m *MemoryLedger) InsertLegPair(_ context.Context, legs [2]types.TradeLeg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legs = append(m.legs, legs[0], legs[1])
	return nil
}

func (m *MemoryLedger) OpenPositionCount(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open := make(map[string]struct{})
	for _, leg := range m.legs {
		if leg.Status == types.LegExecuted || leg.Status == types.LegLive {
			open[leg.MarketID] = struct{}{}
		}
	}
	return len(open), nil
}

func (m *MemoryLedger) HasLegsForMarket(_ context.Context, marketID, normalizedQuestion string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, leg := range m.legs {
		if leg.MarketID == marketID || matching.NormalizeText(leg.Question) == normalizedQuestion {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryLedger) RecentLegs(_ context.Context, limit int) ([]types.TradeLeg, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.TradeLeg, len(m.legs))
	copy(out, m.legs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryLedger) Stats(_ context.Context) (types.TradeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats types.TradeStats
	stats.TotalTrades = len(m.legs) / 2
	for _, leg := range m.legs {
		stats.TotalProfit += leg.ProfitLoss
		stats.TotalInvested += leg.Price * leg.Size
	}
	return stats, nil
}

func (m *MemoryLedger) Get(_ context.Context) (types.BotSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemoryLedger) SetRunning(_ context.Context, running bool) (types.BotSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.IsRunning = running
	m.settings.UpdatedAt = time.Now().UTC()
	return m.settings, nil
}

func (m *MemoryLedger) Update(_ context.Context, upd SettingsUpdate) (types.BotSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if upd.TradeAmount != nil {
		m.settings.TradeAmount = *upd.TradeAmount
	}
	if upd.IntervalMinutes != nil {
		m.settings.IntervalMinutes = *upd.IntervalMinutes
	}
	if upd.MinConfidence != nil {
		m.settings.MinConfidence = *upd.MinConfidence
	}
	if upd.MaxOpenTrades != nil {
		m.settings.MaxOpenTrades = *upd.MaxOpenTrades
	}
	m.settings.UpdatedAt = time.Now().UTC()
	return m.settings, nil
}

func (m *MemoryLedger) TryLock(_ context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MemoryLedger) Unlock(_ context.Context, key int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MemoryLedger) Close() error {
	return nil
}
