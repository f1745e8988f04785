package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if a.httpServer != nil {
		err := a.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	a.wg.Wait()
	a.close()

	a.logger.Info("application-shutdown-complete")

	return nil
}

// Close releases the chain connection, cache and storage without touching
// the HTTP server. Commands that never call Run use it.
func (a *App) Close() {
	a.close()
}

func (a *App) close() {
	a.cancel()

	if a.storage != nil {
		err := a.storage.Close()
		if err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
		a.storage = nil
	}

	if a.collectionIDs != nil {
		a.collectionIDs.Close()
		a.collectionIDs = nil
	}

	if a.chain != nil {
		a.chain.Close()
		a.chain = nil
	}
}
