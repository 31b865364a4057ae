package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/balance"
	"github.com/crossvenue/prediction-arb/internal/execution"
	"github.com/crossvenue/prediction-arb/internal/ledger"
	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/internal/orchestrator"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

type stubSource struct {
	markets []types.NormalizedMarket
}

func (s *stubSource) FetchMarkets(_ context.Context) ([]types.NormalizedMarket, error) {
	return s.markets, nil
}

type stubKalshiBalance struct{ balance float64 }

func (s *stubKalshiBalance) GetBalance(_ context.Context) (float64, error) {
	return s.balance, nil
}

func newTestServer(t *testing.T) (*Server, *ledger.MemoryLedger) {
	t.Helper()

	logger := zap.NewNop()
	mem := ledger.NewMemoryLedger()

	pm := &stubSource{markets: []types.NormalizedMarket{{
		ID:       "pm-chiefs",
		Question: "Will the Chiefs win Super Bowl LX?",
		YesPrice: 0.40,
		NoPrice:  0.55,
		Platform: types.PlatformPolymarket,
	}}}
	k := &stubSource{markets: []types.NormalizedMarket{{
		ID:       "KXSB-CHIEFS",
		Question: "Chiefs win Super Bowl LX?",
		YesPrice: 0.58,
		NoPrice:  0.38,
		Platform: types.PlatformKalshi,
	}}}

	balances := balance.NewService(&balance.Config{
		Kalshi: &stubKalshiBalance{balance: 100},
		Logger: logger,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Polymarket: pm,
		Kalshi:     k,
		Matcher:    matching.NewEngine(0.55, logger),
		Evaluator:  arbitrage.NewEvaluator(logger),
		Executor:   execution.NewExecutor(nil, nil, logger),
		Trades:     mem,
		Settings:   mem,
		Locker:     mem,
		Balances:   balances,
		Logger:     logger,
	}, orchestrator.Config{
		MinBalance:      1.0,
		MinTradeSize:    0.10,
		MaxSlots:        3,
		MinHoursLeft:    0.5,
		MaxHoursLeft:    720,
		LiveWindowHours: 48,
	})

	probe := healthprobe.New("prediction-arb")
	probe.SetReady(true)

	server := New(&Config{
		Port:         "0",
		Logger:       logger,
		Probe:        probe,
		Orchestrator: orch,
		Trades:       mem,
		Settings:     mem,
		Balances:     balances,
	})

	return server, mem
}

func postAction(t *testing.T, server *Server, body string) (*httptest.ResponseRecorder, actionResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/bot", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestActionScan(t *testing.T) {
	server, _ := newTestServer(t)

	rec, resp := postAction(t, server, `{"action":"scan"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var scan orchestrator.ScanResult
	require.NoError(t, json.Unmarshal(raw, &scan))

	assert.Equal(t, 1, scan.PolymarketCount)
	assert.Equal(t, 1, scan.KalshiCount)
	require.Len(t, scan.Opportunities, 1)
	assert.True(t, scan.Opportunities[0].IsArb)

	// Opportunity fields serialize in the dashboard's camelCase contract.
	body := rec.Body.String()
	for _, key := range []string{`"totalCost"`, `"spreadPct"`, `"yesLeg"`, `"noLeg"`, `"isArb"`, `"marketId"`, `"question"`} {
		assert.Contains(t, body, key)
	}
}

func TestActionUnknown(t *testing.T) {
	server, _ := newTestServer(t)

	rec, resp := postAction(t, server, `{"action":"launch_missiles"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown action")
}

func TestActionToggleFlips(t *testing.T) {
	server, mem := newTestServer(t)

	_, resp := postAction(t, server, `{"action":"toggle"}`)
	require.True(t, resp.Success)

	settings, err := mem.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.IsRunning)

	_, resp = postAction(t, server, `{"action":"toggle"}`)
	require.True(t, resp.Success)

	settings, err = mem.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.IsRunning)
}

func TestActionUpdateSettings(t *testing.T) {
	server, mem := newTestServer(t)

	_, resp := postAction(t, server, `{"action":"update_settings","settings":{"tradeAmount":42.5,"maxOpenTrades":2}}`)
	require.True(t, resp.Success)

	settings, err := mem.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.5, settings.TradeAmount)
	assert.Equal(t, 2, settings.MaxOpenTrades)
	// Untouched fields keep their values.
	assert.Equal(t, 60, settings.IntervalMinutes)
}

func TestActionUpdateSettingsRequiresPayload(t *testing.T) {
	server, _ := newTestServer(t)

	rec, resp := postAction(t, server, `{"action":"update_settings"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
}

func TestActionAutoTradeReportsSkipAsSuccess(t *testing.T) {
	server, _ := newTestServer(t)

	rec, resp := postAction(t, server, `{"action":"auto_trade"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result orchestrator.CycleResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, orchestrator.SkipNotRunning, result.SkipReason)
}

func TestActionExecuteDryRunAndStatus(t *testing.T) {
	server, mem := newTestServer(t)

	// Relax confidence so the 28.21% spread qualifies.
	conf := 0.75
	_, err := mem.Update(context.Background(), ledger.SettingsUpdate{MinConfidence: &conf})
	require.NoError(t, err)

	rec, resp := postAction(t, server, `{"action":"execute","live":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	_, resp = postAction(t, server, `{"action":"status"}`)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var status statusData
	require.NoError(t, json.Unmarshal(raw, &status))

	assert.Equal(t, 1, status.Stats.TotalTrades)
	assert.Len(t, status.Trades, 2)
	for _, leg := range status.Trades {
		assert.Equal(t, types.LegSimulated, leg.Status)
	}
}

func TestActionBalance(t *testing.T) {
	server, _ := newTestServer(t)

	rec, resp := postAction(t, server, `{"action":"balance"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var snap balance.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, 100.0, snap.KalshiCash)
}

func TestHealthAndReady(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
