package loader

import (
	"fmt"
	"time"

	"github.com/brpainel/painel-gateway/internal/entities"
)

// DedupeTransactions collapses near-duplicate ledger rows for display. The
// wallet service occasionally reports the same referral bonus twice with
// slightly different descriptions, so commission rows are grouped by related
// user and amount; everything else by description, amount and
// minute-granularity timestamp. First occurrence wins. Display-only: no write
// path ever sees this.
func DedupeTransactions(records []entities.Transaction) []entities.Transaction {
	seen := make(map[string]struct{}, len(records))
	out := make([]entities.Transaction, 0, len(records))

	for _, t := range records {
		key := dedupeKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupeKey(t entities.Transaction) string {
	if t.Kind == entities.TransactionCommission && t.RelatedUser != "" {
		return fmt.Sprintf("commission|%s|%d", t.RelatedUser, t.Amount)
	}
	bucket := t.CreatedAt.Truncate(time.Minute).Unix()
	return fmt.Sprintf("%s|%d|%d", t.Description, t.Amount, bucket)
}

// SumByKind totals amounts per transaction kind, the derived aggregate the
// dashboard's history widget displays.
func SumByKind(records []entities.Transaction) map[string]int64 {
	sums := map[string]int64{"total": 0}
	for _, t := range records {
		sums[string(t.Kind)] += t.Amount
		sums["total"] += t.Amount
	}
	return sums
}
