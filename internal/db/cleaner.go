package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TokenPruner removes push tokens that can never be delivered to.
type TokenPruner interface {
	PruneInvalidPushTokens(ctx context.Context) (int64, error)
}

// StartTokenCleaner prunes malformed push tokens every interval until ctx is done.
func StartTokenCleaner(
	ctx context.Context,
	pruner TokenPruner,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := pruner.PruneInvalidPushTokens(ctx)
				if err != nil {
					log.Error("failed to prune push tokens", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("pruned invalid push tokens", zap.Int64("users", n))
				}
			}
		}
	}()
}
