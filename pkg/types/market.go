package types

import "time"

// Platform identifies one of the two prediction-market venues.
type Platform string

const (
	// PlatformPolymarket is the Polymarket CLOB venue.
	PlatformPolymarket Platform = "polymarket"
	// PlatformKalshi is the Kalshi exchange venue.
	PlatformKalshi Platform = "kalshi"
)

// NormalizedMarket is a venue-independent snapshot of a binary market.
// Prices are probabilities in [0,1]; YesPrice+NoPrice need not sum to 1.
// Snapshots are immutable per scan and are never persisted by the core.
type NormalizedMarket struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	YesPrice   float64   `json:"yesPrice"`
	NoPrice    float64   `json:"noPrice"`
	Platform   Platform  `json:"platform"`
	Volume     float64   `json:"volume"`
	EndTime    time.Time `json:"endTime"`    // zero when the venue did not report one
	YesTokenID string    `json:"yesTokenId"` // CLOB token id (Polymarket) or ticker side ref (Kalshi)
	NoTokenID  string    `json:"noTokenId"`
}

// HasEndTime reports whether the venue supplied a resolution time.
func (m *NormalizedMarket) HasEndTime() bool {
	return !m.EndTime.IsZero()
}

// HoursToResolution returns hours until the market resolves relative to now.
// Returns 0 for markets without an end time or already past it.
func (m *NormalizedMarket) HoursToResolution(now time.Time) float64 {
	if m.EndTime.IsZero() {
		return 0
	}
	h := m.EndTime.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}
