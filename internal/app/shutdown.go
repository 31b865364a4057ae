package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Shutdown stops the scheduler and hub, drains the HTTP server and closes
// the ledger and cache.
func (a *App) Shutdown() {
	a.logger.Info("app-shutting-down")
	a.probe.SetReady(false)

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.httpServer.Shutdown(ctx)
	if err != nil {
		a.logger.Error("http-shutdown-failed", zap.Error(err))
	}

	a.wg.Wait()

	err = a.store.closer()
	if err != nil {
		a.logger.Error("ledger-close-failed", zap.Error(err))
	}

	a.balanceCache.Close()
	a.logger.Info("app-shutdown-complete")
}
