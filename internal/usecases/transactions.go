package usecases

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/loader"
	"github.com/brpainel/painel-gateway/internal/usecases/repository"
)

// HistoryFilter narrows a ledger history read.
type HistoryFilter struct {
	Kind   *string
	From   *time.Time
	To     *time.Time
	Limit  *int
	Offset *int
}

// TransactionSnapshots is the slice of the snapshot store this service uses.
type TransactionSnapshots interface {
	ReplaceTransactions(ctx context.Context, accountID string, records []entities.Transaction) error
	FindTransactions(ctx context.Context, accountID string, f repository.TransactionFilter) ([]entities.Transaction, error)
}

// TransactionsService serves the account's ledger history. Every successful
// upstream read refreshes the local fallback copy; when upstream is down the
// fallback is served instead, flagged stale. Deduplication is display-only.
type TransactionsService struct {
	logger    *slog.Logger
	api       PanelClient
	snapshots TransactionSnapshots
}

func NewTransactionsService(logger *slog.Logger, api PanelClient, snapshots TransactionSnapshots) *TransactionsService {
	return &TransactionsService{logger: logger, api: api, snapshots: snapshots}
}

// History returns the deduped ledger rows. The bool result reports whether
// the data came from the stale fallback copy.
func (s *TransactionsService) History(ctx context.Context, accountID string, f HistoryFilter) ([]entities.Transaction, bool, error) {
	query := url.Values{"account_id": []string{accountID}}
	if f.Kind != nil {
		query.Set("kind", *f.Kind)
	}
	if f.From != nil {
		query.Set("from", f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		query.Set("to", f.To.Format(time.RFC3339))
	}
	if f.Limit != nil {
		query.Set("limit", strconv.Itoa(*f.Limit))
	}
	if f.Offset != nil {
		query.Set("offset", strconv.Itoa(*f.Offset))
	}

	var records []entities.Transaction
	err := s.api.Get(ctx, "/transactions", query, &records)
	if err == nil {
		if s.snapshots != nil {
			if snapErr := s.snapshots.ReplaceTransactions(ctx, accountID, records); snapErr != nil {
				s.logger.Warn("failed to refresh transaction snapshots", "error", snapErr, "account_id", accountID)
			}
		}
		return loader.DedupeTransactions(records), false, nil
	}

	s.logger.Warn("upstream history failed, trying snapshot fallback", "error", err, "account_id", accountID)
	if s.snapshots == nil {
		return nil, false, err
	}
	fallback, snapErr := s.snapshots.FindTransactions(ctx, accountID, repository.TransactionFilter{
		Kind:   f.Kind,
		From:   f.From,
		To:     f.To,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if snapErr != nil {
		return nil, false, err
	}
	return loader.DedupeTransactions(fallback), true, nil
}
