// Package kalshi fetches and normalizes market listings from the Kalshi
// exchange API (venue B). All requests are RSA-PSS signed.
package kalshi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crossvenue/prediction-arb/internal/signing"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

const (
	// pageSize is the number of markets per page request.
	pageSize = 200

	// maxUsableAsk rejects markets quoted within one tick of the edge;
	// there is no spread left to arbitrage against a $1 payout.
	maxUsableAsk = 0.99
)

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	signer     *signing.RSASigner
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Kalshi client. The signer may be nil for
// deployments that never touch Kalshi order endpoints, but market listing
// also requires signed requests, so a nil signer fails on first use.
func NewClient(baseURL string, signer *signing.RSASigner, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// rawMarket is the Kalshi market shape. Prices are integer cents.
type rawMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	YesAsk    int    `json:"yes_ask"`
	NoAsk     int    `json:"no_ask"`
	LastPrice int    `json:"last_price"`
	Volume    int64  `json:"volume"`
	CloseTime string `json:"close_time"`
	Status    string `json:"status"`
}

// FetchMarkets pages through open markets until the cursor is exhausted or
// pageBudget pages were fetched. Composite listings and markets priced at
// the edge tick are excluded; the matching and arbitrage logic assumes
// strictly binary yes/no markets with usable spreads.
func (c *Client) FetchMarkets(ctx context.Context, pageBudget int) ([]types.NormalizedMarket, error) {
	var (
		markets []types.NormalizedMarket
		cursor  string
	)

	for page := 0; page < pageBudget; page++ {
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", pageSize))
		params.Set("status", "open")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		path := "/markets?" + params.Encode()
		body, err := c.doSignedRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		var resp struct {
			Markets []rawMarket `json:"markets"`
			Cursor  string      `json:"cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode markets page %d: %w", page, err)
		}

		for i := range resp.Markets {
			m, err := normalize(&resp.Markets[i])
			if err != nil {
				continue
			}
			markets = append(markets, m)
		}

		cursor = resp.Cursor
		if cursor == "" {
			break
		}
	}

	c.logger.Debug("fetched-kalshi-markets", zap.Int("normalized", len(markets)))

	return markets, nil
}

// normalize converts integer-cent quotes into probabilities through an
// explicit fallback chain: yes_ask first, last_price second, otherwise the
// market is unparseable. The no price follows the same precedence.
func normalize(m *rawMarket) (types.NormalizedMarket, error) {
	if isCompositeTitle(m.Title) {
		return types.NormalizedMarket{}, fmt.Errorf("%w: composite listing %q", types.ErrUnparseableMarket, m.Ticker)
	}

	yesCents := m.YesAsk
	if yesCents <= 0 {
		yesCents = m.LastPrice
	}
	if yesCents <= 0 || yesCents >= 100 {
		return types.NormalizedMarket{}, fmt.Errorf("%w: no usable yes price for %q", types.ErrUnparseableMarket, m.Ticker)
	}

	noCents := m.NoAsk
	if noCents <= 0 {
		noCents = 100 - yesCents
	}
	if noCents <= 0 || noCents >= 100 {
		return types.NormalizedMarket{}, fmt.Errorf("%w: no usable no price for %q", types.ErrUnparseableMarket, m.Ticker)
	}

	yesPrice := float64(yesCents) / 100.0
	noPrice := float64(noCents) / 100.0

	if yesPrice >= maxUsableAsk || noPrice >= maxUsableAsk {
		return types.NormalizedMarket{}, fmt.Errorf("%w: edge-priced market %q", types.ErrUnparseableMarket, m.Ticker)
	}

	var endTime time.Time
	if m.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			endTime = t
		}
	}

	return types.NormalizedMarket{
		ID:         m.Ticker,
		Question:   m.Title,
		YesPrice:   yesPrice,
		NoPrice:    noPrice,
		Platform:   types.PlatformKalshi,
		Volume:     float64(m.Volume),
		EndTime:    endTime,
		YesTokenID: m.Ticker + ":yes",
		NoTokenID:  m.Ticker + ":no",
	}, nil
}

// isCompositeTitle detects listings whose title encodes more than one binary
// outcome. Those cannot be hedged with a single yes/no pair.
func isCompositeTitle(title string) bool {
	lower := strings.ToLower(title)

	// Two question clauses in one title.
	if strings.Count(lower, "will ") >= 2 {
		return true
	}

	for _, marker := range []string{" and will ", ", and ", " & ", " both "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// doSignedRequest builds, signs, sends, and reads an HTTP request against
// the Kalshi API. The signature covers the path without query parameters.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	if c.signer == nil {
		return nil, types.ErrCredentialsUnavailable
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	signPath := path
	if i := strings.Index(signPath, "?"); i >= 0 {
		signPath = signPath[:i]
	}
	// The signed path includes the API prefix of the base URL.
	if u, err := url.Parse(c.baseURL); err == nil {
		signPath = u.Path + signPath
	}

	headers, err := c.signer.Headers(method, signPath, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.VenueError{
			Venue:      types.PlatformKalshi,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	return respBody, nil
}

// PlaceOrder submits a market buy order for one side of a market and returns
// the venue order id.
func (c *Client) PlaceOrder(ctx context.Context, ticker string, side types.Side, count int, priceCents int) (string, error) {
	order := map[string]any{
		"ticker":          ticker,
		"action":          "buy",
		"side":            strings.ToLower(string(side)),
		"count":           count,
		"type":            "limit",
		"yes_price":       priceCents,
		"client_order_id": fmt.Sprintf("arb-%d", time.Now().UnixNano()),
	}
	if side == types.SideNo {
		delete(order, "yes_price")
		order["no_price"] = priceCents
	}

	body, err := c.doSignedRequest(ctx, http.MethodPost, "/portfolio/orders", order)
	if err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}

	var resp struct {
		Order struct {
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}

	if resp.Order.Status == "canceled" {
		return "", fmt.Errorf("order was immediately cancelled")
	}

	return resp.Order.OrderID, nil
}

// GetBalance returns the available cash balance in dollars.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	body, err := c.doSignedRequest(ctx, http.MethodGet, "/portfolio/balance", nil)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	var resp struct {
		Balance int64 `json:"balance"` // cents
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}

	return float64(resp.Balance) / 100.0, nil
}
