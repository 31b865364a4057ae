package types

import "time"

// LegStatus is the persisted outcome of one leg of a hedged position.
type LegStatus string

const (
	// LegExecuted means the leg was recorded as filled.
	LegExecuted LegStatus = "executed"
	// LegLive means the venue accepted the order and it is working.
	LegLive LegStatus = "live"
	// LegSimulated means the venue rejected the order or no tradable token
	// reference was available; recorded for monitoring only.
	LegSimulated LegStatus = "simulated"
	// LegFailed means the leg could not be placed at all.
	LegFailed LegStatus = "failed"
)

// Side is the outcome bought on one venue.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// TradeLeg is one side of a hedged position, persisted by the ledger.
// Two legs per opportunity share a MarketID; the orchestrator always inserts
// them as a pair so the ledger holds exactly 0 or 2 legs per market.
type TradeLeg struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"marketId"`
	Question   string    `json:"question"`
	Venue      Platform  `json:"venue"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Status     LegStatus `json:"status"`
	ProfitLoss float64   `json:"profitLoss"`
	OrderRef   string    `json:"orderRef,omitempty"` // venue order id, empty for simulated legs
	CreatedAt  time.Time `json:"createdAt"`
}

// BotSettings is the operator-controlled configuration held by the settings
// store. The core reads it at the start of each autonomous cycle.
type BotSettings struct {
	TradeAmount     float64   `json:"tradeAmount"`
	IntervalMinutes int       `json:"intervalMinutes"`
	MinConfidence   float64   `json:"minConfidence"`
	MaxOpenTrades   int       `json:"maxOpenTrades"`
	IsRunning       bool      `json:"isRunning"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DefaultBotSettings returns the settings used until an operator changes
// them: $10 per trade, 60 minute cycles, 70% minimum match confidence,
// at most 5 open positions, not running.
func DefaultBotSettings() BotSettings {
	return BotSettings{
		TradeAmount:     10,
		IntervalMinutes: 60,
		MinConfidence:   0.70,
		MaxOpenTrades:   5,
		IsRunning:       false,
		UpdatedAt:       time.Now().UTC(),
	}
}

// TradeStats aggregates the persisted ledger for the status action.
type TradeStats struct {
	TotalTrades   int     `json:"totalTrades"`
	TotalProfit   float64 `json:"totalProfit"`
	TotalInvested float64 `json:"totalInvested"`
}
