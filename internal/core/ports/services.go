package ports

import (
	"context"
	"encoding/json"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/loader"
	"github.com/brpainel/painel-gateway/internal/usecases"
)

// DashboardService exposes the optimistic counter view and the deduped
// transaction history feed.
type DashboardService interface {
	Stats() entities.Stats
	Refresh(ctx context.Context) error
	LoadHistory(ctx context.Context, p loader.Params) error
	History() loader.State[entities.Transaction]
}

// OrderService lists, tracks and (for admins) advances document orders.
type OrderService interface {
	ListOrders(ctx context.Context, accountID string) ([]entities.Order, bool, error)
	Track(ctx context.Context, orderID string) (*usecases.TrackingView, error)
	AdvanceOrder(ctx context.Context, orderID string, next entities.OrderStatus) error
}

// TransactionService serves the ledger history with snapshot fallback.
type TransactionService interface {
	History(ctx context.Context, accountID string, f usecases.HistoryFilter) ([]entities.Transaction, bool, error)
}

// LookupService runs priced record queries behind the balance guard.
type LookupService interface {
	Query(ctx context.Context, accountID string, module entities.LookupModule, document string) (json.RawMessage, error)
	HasRecords(ctx context.Context, accountID string, module entities.LookupModule) (bool, error)
}

// MaintenanceService tracks the system-wide maintenance flag.
type MaintenanceService interface {
	Poll(ctx context.Context) error
	Active() bool
	Allow(s entities.Session) bool
}
