package httpserver

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/balance"
	"github.com/crossvenue/prediction-arb/internal/ledger"
	"github.com/crossvenue/prediction-arb/internal/orchestrator"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// actionHandler dispatches the single-action bot API. Every request is a
// POST with {"action": ...}; skip outcomes are successes with a reason, not
// errors.
type actionHandler struct {
	orch     *orchestrator.Orchestrator
	trades   ledger.TradeLedger
	settings ledger.SettingsStore
	balances *balance.Service
	logger   *zap.Logger
}

func newActionHandler(cfg *Config) *actionHandler {
	return &actionHandler{
		orch:     cfg.Orchestrator,
		trades:   cfg.Trades,
		settings: cfg.Settings,
		balances: cfg.Balances,
		logger:   cfg.Logger,
	}
}

// actionRequest is the union of all action inputs; unused fields are ignored
// per action.
type actionRequest struct {
	Action string `json:"action"`

	// execute
	Opportunity *arbitrage.Opportunity `json:"opportunity,omitempty"`
	Size        float64                `json:"size,omitempty"`
	Live        bool                   `json:"live,omitempty"`

	// toggle; nil flips the current value
	IsRunning *bool `json:"isRunning,omitempty"`

	// update_settings
	Settings *settingsPayload `json:"settings,omitempty"`
}

type settingsPayload struct {
	TradeAmount     *float64 `json:"tradeAmount,omitempty"`
	IntervalMinutes *int     `json:"intervalMinutes,omitempty"`
	MinConfidence   *float64 `json:"minConfidence,omitempty"`
	MaxOpenTrades   *int     `json:"maxOpenTrades,omitempty"`
}

type actionResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *actionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	var data interface{}
	switch req.Action {
	case "scan":
		data, err = h.orch.Scan(ctx)
	case "live_scan":
		data, err = h.orch.LiveScan(ctx)
	case "execute":
		data, err = h.execute(r, &req)
	case "auto_trade":
		data, err = h.orch.AutoTrade(ctx)
	case "balance":
		data, err = h.balances.Snapshot(ctx)
	case "status":
		data, err = h.status(r)
	case "toggle":
		data, err = h.toggle(r, req.IsRunning)
	case "update_settings":
		data, err = h.updateSettings(r, req.Settings)
	default:
		h.writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	if err != nil {
		h.logger.Error("action-failed",
			zap.String("action", req.Action),
			zap.Error(err))
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, actionResponse{Success: true, Data: data})
}

// execute places one caller-supplied opportunity, or runs a full on-demand
// cycle when no opportunity is given.
func (h *actionHandler) execute(r *http.Request, req *actionRequest) (interface{}, error) {
	if req.Opportunity == nil {
		return h.orch.Execute(r.Context(), req.Live)
	}

	size := req.Size
	if size <= 0 {
		settings, err := h.settings.Get(r.Context())
		if err != nil {
			return nil, err
		}
		size = settings.TradeAmount
	}

	legs, err := h.orch.ExecuteOpportunity(r.Context(), *req.Opportunity, size, req.Live)
	if err != nil {
		return nil, err
	}
	return legs[:], nil
}

// statusData is the status action payload: settings, aggregates and the
// most recent legs.
type statusData struct {
	Settings types.BotSettings `json:"settings"`
	Stats    types.TradeStats  `json:"stats"`
	Trades   []types.TradeLeg  `json:"trades"`
}

func (h *actionHandler) status(r *http.Request) (interface{}, error) {
	ctx := r.Context()

	settings, err := h.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := h.trades.Stats(ctx)
	if err != nil {
		return nil, err
	}

	trades, err := h.trades.RecentLegs(ctx, 50)
	if err != nil {
		return nil, err
	}

	return statusData{Settings: settings, Stats: stats, Trades: trades}, nil
}

func (h *actionHandler) toggle(r *http.Request, isRunning *bool) (interface{}, error) {
	ctx := r.Context()

	target := false
	if isRunning != nil {
		target = *isRunning
	} else {
		current, err := h.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		target = !current.IsRunning
	}

	return h.settings.SetRunning(ctx, target)
}

func (h *actionHandler) updateSettings(r *http.Request, payload *settingsPayload) (interface{}, error) {
	if payload == nil {
		return nil, errors.New("update_settings requires a settings object")
	}

	return h.settings.Update(r.Context(), ledger.SettingsUpdate{
		TradeAmount:     payload.TradeAmount,
		IntervalMinutes: payload.IntervalMinutes,
		MinConfidence:   payload.MinConfidence,
		MaxOpenTrades:   payload.MaxOpenTrades,
	})
}

// statusForError maps the failure taxonomy to HTTP statuses: venue outages
// are 502, missing credentials 422, everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrVenueUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrCredentialsUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *actionHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *actionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, actionResponse{Success: false, Error: msg})
}
