package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/status"
	"github.com/brpainel/painel-gateway/internal/usecases/repository"
)

// OrderSnapshots is the slice of the snapshot store the order service uses.
type OrderSnapshots interface {
	ReplaceOrders(ctx context.Context, accountID string, orders []entities.Order) error
	FindOrders(ctx context.Context, accountID string) ([]entities.Order, error)
	FindOrder(ctx context.Context, orderID string) (*entities.Order, error)
}

// TrackingView is the rendered pipeline state for one order.
type TrackingView struct {
	Order    entities.Order     `json:"order"`
	Stages   []status.StageView `json:"stages"`
	Progress float64            `json:"progress"`
}

// OrdersService reads document orders from upstream and computes tracking
// views over the fixed pipeline. Status never advances locally; admin
// transitions are forwarded upstream and take effect on the next read.
type OrdersService struct {
	logger    *slog.Logger
	api       PanelClient
	snapshots OrderSnapshots
	pipeline  *status.Pipeline
}

func NewOrdersService(logger *slog.Logger, api PanelClient, snapshots OrderSnapshots) *OrdersService {
	return &OrdersService{
		logger:    logger,
		api:       api,
		snapshots: snapshots,
		pipeline:  entities.DocumentPipeline,
	}
}

// ListOrders fetches the account's orders. On upstream failure the last
// persisted snapshot is served instead, flagged stale.
func (s *OrdersService) ListOrders(ctx context.Context, accountID string) ([]entities.Order, bool, error) {
	query := url.Values{"account_id": []string{accountID}}

	var orders []entities.Order
	err := s.api.Get(ctx, "/orders", query, &orders)
	if err == nil {
		if s.snapshots != nil {
			if snapErr := s.snapshots.ReplaceOrders(ctx, accountID, orders); snapErr != nil {
				s.logger.Warn("failed to refresh order snapshots", "error", snapErr, "account_id", accountID)
			}
		}
		return orders, false, nil
	}

	s.logger.Warn("upstream order list failed, trying snapshot fallback", "error", err, "account_id", accountID)
	if s.snapshots == nil {
		return nil, false, err
	}
	fallback, snapErr := s.snapshots.FindOrders(ctx, accountID)
	if snapErr != nil {
		return nil, false, err
	}
	return fallback, true, nil
}

// Track renders the status tracker for one order: which stages are completed,
// active and pending, plus the progress fraction. An unrecognized status from
// upstream renders all stages pending rather than failing.
func (s *OrdersService) Track(ctx context.Context, orderID string) (*TrackingView, error) {
	order, err := s.fetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	reached := func(key string) *time.Time {
		return order.ReachedAt(entities.OrderStatus(key))
	}
	if err = s.pipeline.ValidateTimestamps(reached); err != nil {
		// Upstream history is authoritative even when inconsistent; log only.
		s.logger.Warn("order stage timestamps violate pipeline order", "order_id", orderID, "error", err)
	}

	return &TrackingView{
		Order:    *order,
		Stages:   s.pipeline.Track(string(order.Status), reached),
		Progress: s.pipeline.Progress(string(order.Status)),
	}, nil
}

// AdvanceOrder forwards an admin transition upstream. Regressions are
// rejected locally before any call is made; the forwarded command carries an
// idempotency key so retries are safe.
func (s *OrdersService) AdvanceOrder(ctx context.Context, orderID string, next entities.OrderStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown order status %q", next)
	}

	order, err := s.fetchOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !s.pipeline.Allows(string(order.Status), string(next)) {
		return &entities.ErrStatusRegression{From: order.Status, To: next}
	}

	body := map[string]string{
		"status":          string(next),
		"idempotency_key": uuid.New().String(),
	}
	if err = s.api.Post(ctx, "/admin/orders/"+orderID+"/advance", body, nil); err != nil {
		return fmt.Errorf("forward order advance: %w", err)
	}

	s.logger.Info("order advance forwarded", "order_id", orderID, "from", order.Status, "to", next)
	return nil
}

func (s *OrdersService) fetchOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	var order entities.Order
	err := s.api.Get(ctx, "/orders/"+orderID, nil, &order)
	if err == nil {
		return &order, nil
	}

	if s.snapshots != nil {
		fallback, snapErr := s.snapshots.FindOrder(ctx, orderID)
		if snapErr == nil {
			s.logger.Warn("serving order from snapshot", "order_id", orderID, "error", err)
			return fallback, nil
		}
		if !errors.Is(snapErr, repository.ErrNotFound) {
			s.logger.Warn("order snapshot read failed", "order_id", orderID, "error", snapErr)
		}
	}
	return nil, err
}
