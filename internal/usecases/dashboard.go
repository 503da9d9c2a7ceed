package usecases

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/loader"
	"github.com/brpainel/painel-gateway/internal/optimistic"
)

// DashboardService combines the authoritative stats feed with the optimistic
// updater and the deduped transaction history loader.
type DashboardService struct {
	logger  *slog.Logger
	api     PanelClient
	updater *optimistic.Updater
	history *loader.Loader[entities.Transaction]
}

func NewDashboardService(logger *slog.Logger, api PanelClient, bus *eventbus.Bus, debounce time.Duration, opts ...optimistic.Option) *DashboardService {
	s := &DashboardService{logger: logger, api: api}

	s.updater = optimistic.New(logger, s.fetchStats, debounce, opts...)
	s.updater.BindBus(bus)

	s.history = loader.New(logger, s.fetchHistory,
		loader.WithTransform(DedupeHistory),
		loader.WithDerive(loader.SumByKind),
	)
	return s
}

// DedupeHistory is the display transform applied to every history fetch.
var DedupeHistory = loader.DedupeTransactions

func (s *DashboardService) fetchStats(ctx context.Context) (entities.Stats, error) {
	var data struct {
		CashBalance     int64 `json:"cash_balance"`
		RechargeTotal   int64 `json:"recharge_total"`
		CommissionTotal int64 `json:"commission_total"`
		PlanSales       int64 `json:"plan_sales"`
	}
	if err := s.api.Get(ctx, "/dashboard/stats", nil, &data); err != nil {
		return nil, err
	}
	return entities.Stats{
		entities.CounterCashBalance:     data.CashBalance,
		entities.CounterRechargeTotal:   data.RechargeTotal,
		entities.CounterCommissionTotal: data.CommissionTotal,
		entities.CounterPlanSales:       data.PlanSales,
	}, nil
}

func (s *DashboardService) fetchHistory(ctx context.Context, p loader.Params) ([]entities.Transaction, error) {
	query := url.Values{}
	if p.Status != nil {
		query.Set("kind", *p.Status)
	}
	if p.Search != nil {
		query.Set("search", *p.Search)
	}
	if p.From != nil {
		query.Set("from", p.From.Format(time.RFC3339))
	}
	if p.To != nil {
		query.Set("to", p.To.Format(time.RFC3339))
	}
	if p.Limit != nil {
		query.Set("limit", strconv.Itoa(*p.Limit))
	}
	if p.Offset != nil {
		query.Set("offset", strconv.Itoa(*p.Offset))
	}

	var records []entities.Transaction
	if err := s.api.Get(ctx, "/transactions", query, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Stats returns the displayed counters: last synced base plus any pending
// optimistic deltas.
func (s *DashboardService) Stats() entities.Stats {
	return s.updater.Values()
}

// Refresh re-reads the authoritative stats. Pending deltas survive; only a
// reconciliation clears them.
func (s *DashboardService) Refresh(ctx context.Context) error {
	stats, err := s.fetchStats(ctx)
	if err != nil {
		return err
	}
	s.updater.SetBase(stats)
	return nil
}

// LoadHistory (re)loads the transaction list with the given filters.
func (s *DashboardService) LoadHistory(ctx context.Context, p loader.Params) error {
	return s.history.Load(ctx, p)
}

// History returns the current history view.
func (s *DashboardService) History() loader.State[entities.Transaction] {
	return s.history.Snapshot()
}
