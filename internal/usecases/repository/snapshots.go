package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ErrNotFound is returned when a snapshot row does not exist.
var ErrNotFound = errors.New("snapshot not found")

// TransactionFilter narrows FindTransactions. Nil fields are unfiltered.
type TransactionFilter struct {
	Kind   *string
	From   *time.Time
	To     *time.Time
	Limit  *int
	Offset *int
}

// SnapshotsRepository persists non-authoritative fallback copies of upstream
// collections. The store is replaced wholesale per account on every
// successful refresh; it is read only when upstream is unreachable.
type SnapshotsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewSnapshotsRepository(logger *slog.Logger, pg *database.Postgres) *SnapshotsRepository {
	return &SnapshotsRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

// ReplaceTransactions swaps the stored history for the account in one
// transaction, so readers never observe a half-written snapshot.
func (r *SnapshotsRepository) ReplaceTransactions(ctx context.Context, accountID string, records []entities.Transaction) error {
	return r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.db(ctx).Exec(ctx, "DELETE FROM transaction_snapshots WHERE account_id = $1", accountID); err != nil {
			return fmt.Errorf("clear transaction snapshots: %w", err)
		}

		for _, t := range records {
			query, args, err := psql.Insert("transaction_snapshots").
				Columns("id", "account_id", "kind", "amount", "description", "related_user", "payment_method", "created_at").
				Values(t.ID, accountID, string(t.Kind), t.Amount, t.Description, t.RelatedUser, t.PaymentMethod, t.CreatedAt).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err = r.db(ctx).Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert transaction snapshot %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// FindTransactions reads the fallback history with optional filters.
func (r *SnapshotsRepository) FindTransactions(ctx context.Context, accountID string, f TransactionFilter) ([]entities.Transaction, error) {
	builder := psql.Select("id", "account_id", "kind", "amount", "description", "related_user", "payment_method", "created_at").
		From("transaction_snapshots").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("created_at DESC")

	if f.Kind != nil {
		builder = builder.Where(sq.Eq{"kind": *f.Kind})
	}
	if f.From != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		builder = builder.Where(sq.LtOrEq{"created_at": *f.To})
	}
	if f.Limit != nil {
		builder = builder.Limit(uint64(*f.Limit))
	}
	if f.Offset != nil {
		builder = builder.Offset(uint64(*f.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	transactions, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.Transaction])
	if err != nil {
		r.logger.Error("failed to collect transaction snapshot rows", "error", err)
		return nil, err
	}
	return transactions, nil
}

// ReplaceOrders swaps the stored order list for the account.
func (r *SnapshotsRepository) ReplaceOrders(ctx context.Context, accountID string, orders []entities.Order) error {
	return r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.db(ctx).Exec(ctx, "DELETE FROM order_snapshots WHERE account_id = $1", accountID); err != nil {
			return fmt.Errorf("clear order snapshots: %w", err)
		}

		for _, o := range orders {
			times, err := json.Marshal(o.StatusTimes)
			if err != nil {
				return fmt.Errorf("encode status times for order %s: %w", o.ID, err)
			}

			query, args, err := psql.Insert("order_snapshots").
				Columns("id", "account_id", "kind", "document_number", "requester", "status", "status_times", "amount_paid", "artifact", "created_at").
				Values(o.ID, accountID, string(o.Kind), o.DocumentNo, o.Requester, string(o.Status), times, o.AmountPaid, o.Artifact, o.CreatedAt).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err = r.db(ctx).Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert order snapshot %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// FindOrders reads the fallback order list for the account.
func (r *SnapshotsRepository) FindOrders(ctx context.Context, accountID string) ([]entities.Order, error) {
	query, args, err := psql.Select("id", "account_id", "kind", "document_number", "requester", "status", "status_times", "amount_paid", "artifact", "created_at").
		From("order_snapshots").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []entities.Order
	for rows.Next() {
		var o entities.Order
		var times []byte
		if err = rows.Scan(&o.ID, &o.AccountID, &o.Kind, &o.DocumentNo, &o.Requester, &o.Status, &times, &o.AmountPaid, &o.Artifact, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order snapshot: %w", err)
		}
		if len(times) > 0 {
			if err = json.Unmarshal(times, &o.StatusTimes); err != nil {
				return nil, fmt.Errorf("decode status times for order %s: %w", o.ID, err)
			}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FindOrder reads one order snapshot by id.
func (r *SnapshotsRepository) FindOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	query, args, err := psql.Select("id", "account_id", "kind", "document_number", "requester", "status", "status_times", "amount_paid", "artifact", "created_at").
		From("order_snapshots").
		Where(sq.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var o entities.Order
	var times []byte
	err = r.db(ctx).QueryRow(ctx, query, args...).
		Scan(&o.ID, &o.AccountID, &o.Kind, &o.DocumentNo, &o.Requester, &o.Status, &times, &o.AmountPaid, &o.Artifact, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(times) > 0 {
		if err = json.Unmarshal(times, &o.StatusTimes); err != nil {
			return nil, fmt.Errorf("decode status times for order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}
