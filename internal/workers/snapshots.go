package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/brpainel/painel-gateway/internal/metrics"
)

// SnapshotService refreshes the local fallback copies of upstream data.
type SnapshotService interface {
	RefreshAll(ctx context.Context) (int, error)
}

// SnapshotRefresher periodically re-pulls orders and transactions for active
// accounts into the snapshot store, so the fallback data served during an
// upstream outage stays reasonably fresh.
type SnapshotRefresher struct {
	logger  *slog.Logger
	syncer  SnapshotService
	refresh time.Duration
}

func NewSnapshotRefresher(logger *slog.Logger, syncer SnapshotService, refresh time.Duration) *SnapshotRefresher {
	return &SnapshotRefresher{
		logger:  logger,
		syncer:  syncer,
		refresh: refresh,
	}
}

// Start begins the periodic refresh cycle.
func (sr *SnapshotRefresher) Start(ctx context.Context) {
	sr.logger.Info("Starting snapshot refresher", "refresh_interval", sr.refresh.String())

	if err := sr.refreshAll(ctx); err != nil {
		sr.logger.Error("Initial snapshot refresh failed", "error", err)
	}

	ticker := time.NewTicker(sr.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sr.logger.Info("Snapshot refresher stopped")
			return
		case <-ticker.C:
			if err := sr.refreshAll(ctx); err != nil {
				sr.logger.Error("Snapshot refresh failed", "error", err)
			}
		}
	}
}

func (sr *SnapshotRefresher) refreshAll(ctx context.Context) error {
	count, err := sr.syncer.RefreshAll(ctx)
	metrics.ObserveSnapshotRefresh(err)
	if err != nil {
		return err
	}

	if count > 0 {
		sr.logger.Info("Refreshed account snapshots", "accounts", count)
	} else {
		sr.logger.Debug("No account snapshots to refresh")
	}
	return nil
}
