package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/brpainel/painel-gateway/internal/cache"
	"github.com/brpainel/painel-gateway/internal/entities"
)

// LookupService forwards priced CPF/CNPJ/vehicle queries. The balance guard
// runs before anything is forwarded: a query the account cannot pay for never
// reaches upstream. Record-existence flags are cached with a short TTL so the
// panel can gate module navigation without a fetch per page view.
type LookupService struct {
	logger     *slog.Logger
	api        PanelClient
	hasRecords *cache.TTL[string, bool]
	ttl        time.Duration
	prices     map[entities.LookupModule]int64
}

func NewLookupService(logger *slog.Logger, api PanelClient, ttl time.Duration, prices map[entities.LookupModule]int64) *LookupService {
	return &LookupService{
		logger:     logger,
		api:        api,
		hasRecords: cache.NewTTL[string, bool](),
		ttl:        ttl,
		prices:     prices,
	}
}

// Query runs one record lookup for the account. Returns the raw result
// payload; the gateway does not interpret module-specific shapes.
func (s *LookupService) Query(ctx context.Context, accountID string, module entities.LookupModule, document string) (json.RawMessage, error) {
	if !module.Valid() {
		return nil, fmt.Errorf("unknown lookup module %q", module)
	}
	if document == "" {
		return nil, fmt.Errorf("document is required")
	}

	price := s.prices[module]
	if price > 0 {
		balance, err := s.fetchBalance(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("balance guard: %w", err)
		}
		if balance < price {
			return nil, ErrInsufficientBalance
		}
	}

	var result json.RawMessage
	body := map[string]string{"account_id": accountID, "document": document}
	if err := s.api.Post(ctx, "/lookup/"+string(module), body, &result); err != nil {
		return nil, err
	}

	// The account now certainly has history in this module.
	s.hasRecords.Set(recordsKey(accountID, module), true, s.ttl)
	return result, nil
}

// HasRecords reports whether the account ever queried the module, via the
// TTL cache with read-repair on miss.
func (s *LookupService) HasRecords(ctx context.Context, accountID string, module entities.LookupModule) (bool, error) {
	if !module.Valid() {
		return false, fmt.Errorf("unknown lookup module %q", module)
	}

	return s.hasRecords.GetOrFill(ctx, recordsKey(accountID, module), s.ttl, func(ctx context.Context) (bool, error) {
		query := url.Values{
			"account_id": []string{accountID},
			"module":     []string{string(module)},
		}
		var data struct {
			HasRecords bool `json:"has_records"`
		}
		if err := s.api.Get(ctx, "/module-history/stats", query, &data); err != nil {
			return false, err
		}
		return data.HasRecords, nil
	})
}

func (s *LookupService) fetchBalance(ctx context.Context, accountID string) (int64, error) {
	query := url.Values{"account_id": []string{accountID}}
	var data struct {
		Balance int64 `json:"balance"`
	}
	if err := s.api.Get(ctx, "/wallet/balance", query, &data); err != nil {
		return 0, err
	}
	return data.Balance, nil
}

func recordsKey(accountID string, module entities.LookupModule) string {
	return accountID + ":" + string(module)
}
