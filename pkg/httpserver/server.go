// Package httpserver exposes the dashboard-facing surface: the single-action
// bot API, the trade push WebSocket, metrics and health probes.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/balance"
	"github.com/crossvenue/prediction-arb/internal/ledger"
	"github.com/crossvenue/prediction-arb/internal/notify"
	"github.com/crossvenue/prediction-arb/internal/orchestrator"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
)

// Server serves the bot action API plus operational endpoints.
type Server struct {
	server *http.Server
	logger *zap.Logger
	probe  *healthprobe.Probe
}

// Config holds server configuration.
type Config struct {
	Port         string
	Logger       *zap.Logger
	Probe        *healthprobe.Probe
	Orchestrator *orchestrator.Orchestrator
	Trades       ledger.TradeLedger
	Settings     ledger.SettingsStore
	Balances     *balance.Service
	Hub          *notify.Hub
}

// New creates the HTTP server and mounts all routes.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.Probe.Health())
	r.Get("/ready", cfg.Probe.Ready())

	actions := newActionHandler(cfg)
	r.Post("/api/bot", actions.ServeHTTP)

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server: server,
		logger: cfg.Logger,
		probe:  cfg.Probe,
	}
}

// Handler returns the mounted router; used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
