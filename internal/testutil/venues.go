// Package testutil provides fake venue API servers and market fixtures for
// tests that exercise the HTTP clients end to end.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"

	json "github.com/goccy/go-json"
)

// GammaMarket is the wire shape served by the fake Gamma API. Outcome prices
// and token ids are JSON-encoded string arrays, as the real API sends them.
type GammaMarket struct {
	ID            string  `json:"id"`
	ConditionID   string  `json:"conditionId"`
	Question      string  `json:"question"`
	Outcomes      string  `json:"outcomes"`
	OutcomePrices string  `json:"outcomePrices"`
	ClobTokenIDs  string  `json:"clobTokenIds"`
	Volume24hr    float64 `json:"volume24hr"`
	EndDate       string  `json:"endDate"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
}

// BinaryGammaMarket builds a well-formed binary market for the fake Gamma API.
func BinaryGammaMarket(id, question string, yesPrice, noPrice string) GammaMarket {
	return GammaMarket{
		ID:            id,
		ConditionID:   "cond-" + id,
		Question:      question,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["` + yesPrice + `","` + noPrice + `"]`,
		ClobTokenIDs:  `["` + id + `-yes","` + id + `-no"]`,
		Volume24hr:    1000,
		Active:        true,
	}
}

// MockGammaAPI is a fake Gamma markets endpoint. It records request counts
// and serves a fixed market list as a bare JSON array.
type MockGammaAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	markets  []GammaMarket
	requests int
}

// NewMockGammaAPI starts the fake server; callers own its lifecycle via
// Close.
func NewMockGammaAPI(markets []GammaMarket) *MockGammaAPI {
	m := &MockGammaAPI{markets: markets}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests++
		payload := m.markets
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))

	return m
}

// Requests returns how many market list calls the server has seen.
func (m *MockGammaAPI) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// Close shuts the fake server down.
func (m *MockGammaAPI) Close() {
	m.Server.Close()
}

// KalshiMarket is the wire shape served by the fake Kalshi API. Prices are
// integer cents.
type KalshiMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	YesAsk    int    `json:"yes_ask"`
	NoAsk     int    `json:"no_ask"`
	LastPrice int    `json:"last_price"`
	Volume    int64  `json:"volume"`
	CloseTime string `json:"close_time"`
	Status    string `json:"status"`
}

// BinaryKalshiMarket builds a well-formed open market for the fake Kalshi
// API.
func BinaryKalshiMarket(ticker, title string, yesAskCents, noAskCents int) KalshiMarket {
	return KalshiMarket{
		Ticker: ticker,
		Title:  title,
		YesAsk: yesAskCents,
		NoAsk:  noAskCents,
		Volume: 500,
		Status: "open",
	}
}

type kalshiPage struct {
	Markets []KalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// MockKalshiAPI is a fake Kalshi exchange API serving paged market lists and
// canned order and balance responses.
type MockKalshiAPI struct {
	Server *httptest.Server

	// BalanceCents is returned by the balance endpoint.
	BalanceCents int64

	// OrderID and OrderStatus shape the order placement response.
	OrderID     string
	OrderStatus string

	mu           sync.Mutex
	pages        []kalshiPage
	marketCalls  int
	orderBodies  []map[string]any
	lastSignedBy string
}

// NewMockKalshiAPI starts a fake server with the given market pages. Each
// page links to the next through the cursor; the final page has none.
func NewMockKalshiAPI(pages ...[]KalshiMarket) *MockKalshiAPI {
	m := &MockKalshiAPI{
		BalanceCents: 10000,
		OrderID:      "order-1",
		OrderStatus:  "resting",
	}

	for i, page := range pages {
		cursor := ""
		if i < len(pages)-1 {
			cursor = "cursor-" + string(rune('a'+i))
		}
		m.pages = append(m.pages, kalshiPage{Markets: page, Cursor: cursor})
	}

	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockKalshiAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSignedBy = r.Header.Get("KALSHI-ACCESS-KEY")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/markets":
		page := kalshiPage{}
		if m.marketCalls < len(m.pages) {
			page = m.pages[m.marketCalls]
		}
		m.marketCalls++
		_ = json.NewEncoder(w).Encode(page)

	case r.URL.Path == "/portfolio/balance":
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": m.BalanceCents})

	case r.URL.Path == "/portfolio/orders" && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.orderBodies = append(m.orderBodies, body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{"order_id": m.OrderID, "status": m.OrderStatus},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

// MarketCalls returns how many market pages were requested.
func (m *MockKalshiAPI) MarketCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marketCalls
}

// OrderBodies returns the decoded bodies of all placed orders.
func (m *MockKalshiAPI) OrderBodies() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.orderBodies...)
}

// LastSignedBy returns the access key header of the most recent request.
func (m *MockKalshiAPI) LastSignedBy() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSignedBy
}

// Close shuts the fake server down.
func (m *MockKalshiAPI) Close() {
	m.Server.Close()
}
