// Package polymarket fetches and normalizes market listings from the
// Polymarket Gamma API (venue A).
package polymarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// MaxBatchSize is the maximum number of markets per Gamma API request.
const MaxBatchSize = 100

// Client is an HTTP client for the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Gamma API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// gammaMarket is the raw Gamma API market shape. Outcome prices and CLOB
// token ids arrive as JSON-encoded string arrays inside JSON.
type gammaMarket struct {
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

// FetchMarkets fetches active markets ordered by 24h volume and normalizes
// them into binary yes/no snapshots. Markets without two parsable outcome
// prices and token ids are skipped.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]types.NormalizedMarket, error) {
	if limit <= 0 || limit > MaxBatchSize {
		limit = MaxBatchSize
	}

	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("order", "volume24hr")
	params.Add("ascending", "false")

	requestURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prediction-arb/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &types.VenueError{
			Venue:      types.PlatformPolymarket,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	// The Gamma API returns a direct array, not wrapped in an object.
	var raw []gammaMarket
	err = json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	markets := make([]types.NormalizedMarket, 0, len(raw))
	skipped := 0
	for i := range raw {
		m, ok := normalize(&raw[i])
		if !ok {
			skipped++
			continue
		}
		markets = append(markets, m)
	}

	c.logger.Debug("fetched-polymarket-markets",
		zap.Int("total", len(raw)),
		zap.Int("normalized", len(markets)),
		zap.Int("skipped", skipped))

	return markets, nil
}

// normalize converts a raw Gamma market into a NormalizedMarket. The first
// outcome slot is Yes and the second is No, per the Gamma binary convention.
func normalize(m *gammaMarket) (types.NormalizedMarket, bool) {
	var prices, tokenIDs []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return types.NormalizedMarket{}, false
	}
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return types.NormalizedMarket{}, false
	}
	if len(prices) < 2 || len(tokenIDs) < 2 {
		return types.NormalizedMarket{}, false
	}

	yesPrice, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return types.NormalizedMarket{}, false
	}
	noPrice, err := strconv.ParseFloat(prices[1], 64)
	if err != nil {
		return types.NormalizedMarket{}, false
	}
	if yesPrice <= 0 || noPrice <= 0 || yesPrice >= 1 || noPrice >= 1 {
		return types.NormalizedMarket{}, false
	}

	id := m.ConditionID
	if id == "" {
		id = m.ID
	}

	var endTime time.Time
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			endTime = t
		}
	}

	return types.NormalizedMarket{
		ID:         id,
		Question:   m.Question,
		YesPrice:   yesPrice,
		NoPrice:    noPrice,
		Platform:   types.PlatformPolymarket,
		Volume:     m.Volume24hr,
		EndTime:    endTime,
		YesTokenID: tokenIDs[0],
		NoTokenID:  tokenIDs[1],
	}, true
}
