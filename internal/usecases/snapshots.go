package usecases

import (
	"context"
	"fmt"
	"log/slog"
)

// SnapshotSyncer refreshes the fallback copies for every active account so
// that a later upstream outage still has recent data to serve. Reads go
// through the regular services, which persist snapshots on success.
type SnapshotSyncer struct {
	logger       *slog.Logger
	api          PanelClient
	orders       *OrdersService
	transactions *TransactionsService
}

func NewSnapshotSyncer(logger *slog.Logger, api PanelClient, orders *OrdersService, transactions *TransactionsService) *SnapshotSyncer {
	return &SnapshotSyncer{
		logger:       logger,
		api:          api,
		orders:       orders,
		transactions: transactions,
	}
}

// RefreshAll refreshes snapshots for all active accounts and returns how many
// succeeded. Per-account failures are logged and skipped; the cycle goes on.
func (s *SnapshotSyncer) RefreshAll(ctx context.Context) (int, error) {
	var accountIDs []string
	if err := s.api.Get(ctx, "/accounts/active", nil, &accountIDs); err != nil {
		return 0, fmt.Errorf("list active accounts: %w", err)
	}

	refreshed := 0
	for _, id := range accountIDs {
		if _, stale, err := s.transactions.History(ctx, id, HistoryFilter{}); err != nil || stale {
			s.logger.Warn("transaction snapshot refresh failed", "account_id", id, "error", err)
			continue
		}
		if _, stale, err := s.orders.ListOrders(ctx, id); err != nil || stale {
			s.logger.Warn("order snapshot refresh failed", "account_id", id, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
