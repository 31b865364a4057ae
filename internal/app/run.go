package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the push hub, the HTTP server and the auto-trade scheduler,
// then blocks until a termination signal arrives.
func (a *App) Run() error {
	a.logger.Info("app-starting")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(a.ctx)
	}()

	errCh := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.httpServer.Start()
		if err != nil {
			errCh <- err
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runScheduler()
	}()

	a.probe.SetReady(true)
	a.logger.Info("app-started")

	select {
	case err := <-errCh:
		a.logger.Error("http-server-failed", zap.Error(err))
		a.Shutdown()
		return err
	case sig := <-waitForSignal():
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
		a.Shutdown()
		return nil
	}
}

// runScheduler fires auto-trade cycles on the interval held in settings. The
// interval is re-read every tick so dashboard updates take effect without a
// restart.
func (a *App) runScheduler() {
	for {
		interval := a.schedulerInterval()

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(interval):
		}

		cycleCtx, cancel := context.WithTimeout(a.ctx, 5*time.Minute)
		result, err := a.orch.AutoTrade(cycleCtx)
		cancel()

		if err != nil {
			a.logger.Error("auto-trade-cycle-failed", zap.Error(err))
			continue
		}

		if result.SkipReason != "" {
			a.logger.Debug("auto-trade-cycle-skipped", zap.String("reason", result.SkipReason))
			continue
		}

		a.logger.Info("auto-trade-cycle-complete",
			zap.Int("considered", result.Considered),
			zap.Int("trades-placed", result.TradesPlaced))
	}
}

func (a *App) schedulerInterval() time.Duration {
	settings, err := a.store.settings.Get(a.ctx)
	if err != nil {
		a.logger.Warn("settings-read-failed", zap.Error(err))
		return time.Minute
	}

	interval := time.Duration(settings.IntervalMinutes) * time.Minute
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func waitForSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
