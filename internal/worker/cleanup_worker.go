package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/service"
)

// StartCleanupWorker periodically deletes read inbox messages past the
// retention window. It runs one sweep immediately and then on every
// tick until the context is cancelled.
func StartCleanupWorker(ctx context.Context, inbox *service.InboxService, interval time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runSweep(ctx, inbox, logger)
		for {
			select {
			case <-ctx.Done():
				logger.Info("inbox cleanup worker stopped")
				return
			case <-ticker.C:
				runSweep(ctx, inbox, logger)
			}
		}
	}()
}

func runSweep(ctx context.Context, inbox *service.InboxService, logger *zap.Logger) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := inbox.Cleanup(sweepCtx); err != nil {
		logger.Error("inbox cleanup sweep failed", zap.Error(err))
	}
}
