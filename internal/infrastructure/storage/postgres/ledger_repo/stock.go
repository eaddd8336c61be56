// Package ledger_repo provides PostgreSQL implementations for the stock
// ledger, transaction headers, and the admin stock pool.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/internal/domain/stockledger"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	ledgerEntriesTable     = "stock_ledger_entries"
	batchBalancesTable     = "stock_batch_balances"
	aggregateBalancesTable = "stock_aggregate_balances"
)

// StockRepo implements stockledger.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// EligibleBatches returns lots with stock left and expiry beyond the
// horizon, ordered first-expiry-first.
func (r *StockRepo) EligibleBatches(ctx context.Context, franchiseID, medicineID id.ID, asOf time.Time, horizonDays int) ([]stockledger.BatchLot, error) {
	cutoff := asOf.AddDate(0, 0, horizonDays)

	q := r.builder.
		Select("batch_number", "expiry_date", "quantity").
		From(batchBalancesTable).
		Where(squirrel.Eq{
			"franchise_id": franchiseID,
			"medicine_id":  medicineID,
		}).
		Where(squirrel.Gt{"quantity": int64(0)}).
		Where(squirrel.Gt{"expiry_date": cutoff}).
		OrderBy("expiry_date", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []stockledger.BatchLot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select eligible batches: %w", err)
	}

	return lots, nil
}

// InsertEntries batch inserts ledger entries.
func (r *StockRepo) InsertEntries(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	columns := []string{
		"line_id", "transaction_id", "franchise_id", "medicine_id",
		"batch_number", "expiry_date", "qty_change", "rate", "amount",
		"created_at",
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{
				e.LineID, e.TransactionID, e.FranchiseID, e.MedicineID,
				e.BatchNumber, e.ExpiryDate, e.QtyChange, e.Rate, e.Amount,
				e.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, ledgerEntriesTable, columns, rows); err != nil {
			return fmt.Errorf("copy ledger entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(ledgerEntriesTable).Columns(columns...)
	for _, e := range entries {
		q = q.Values(
			e.LineID, e.TransactionID, e.FranchiseID, e.MedicineID,
			e.BatchNumber, e.ExpiryDate, e.QtyChange, e.Rate, e.Amount,
			e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}

	return nil
}

// EntriesByTransaction retrieves all entries for a transaction.
func (r *StockRepo) EntriesByTransaction(ctx context.Context, transactionID id.ID) ([]entity.LedgerEntry, error) {
	q := r.builder.
		Select(
			"line_id", "transaction_id", "franchise_id", "medicine_id",
			"batch_number", "expiry_date", "qty_change", "rate", "amount",
			"created_at",
		).
		From(ledgerEntriesTable).
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	return entries, nil
}

// DeleteEntriesByTransaction removes all entries for a transaction.
func (r *StockRepo) DeleteEntriesByTransaction(ctx context.Context, transactionID id.ID) error {
	q := r.builder.
		Delete(ledgerEntriesTable).
		Where(squirrel.Eq{"transaction_id": transactionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}

	return nil
}

// ReassignEntriesFranchise re-points a transaction's entries to a new
// franchise.
func (r *StockRepo) ReassignEntriesFranchise(ctx context.Context, transactionID, franchiseID id.ID) error {
	q := r.builder.
		Update(ledgerEntriesTable).
		Set("franchise_id", franchiseID).
		Where(squirrel.Eq{"transaction_id": transactionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("reassign entries: %w", err)
	}

	return nil
}

// AddToBatchBalance applies a signed delta to a batch balance row.
// Positive deltas upsert; negative deltas only succeed when the row stays
// non-negative.
func (r *StockRepo) AddToBatchBalance(ctx context.Context, franchiseID, medicineID id.ID, batchNumber string, expiryDate time.Time, delta types.Quantity) error {
	querier := r.txManager.GetQuerier(ctx)

	if delta >= 0 {
		sql := `
			INSERT INTO stock_batch_balances
				(franchise_id, medicine_id, batch_number, expiry_date, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			ON CONFLICT (franchise_id, medicine_id, batch_number, expiry_date) DO UPDATE SET
				quantity = stock_batch_balances.quantity + EXCLUDED.quantity,
				updated_at = NOW()
		`
		if _, err := querier.Exec(ctx, sql, franchiseID, medicineID, batchNumber, expiryDate, delta); err != nil {
			return fmt.Errorf("upsert batch balance: %w", err)
		}
		return nil
	}

	// The guard refuses to drive the row negative: a concurrent consumer
	// got there first.
	sql := `
		UPDATE stock_batch_balances
		SET quantity = quantity + $5, updated_at = NOW()
		WHERE franchise_id = $1 AND medicine_id = $2 AND batch_number = $3 AND expiry_date = $4
		  AND quantity + $5 >= 0
	`
	result, err := querier.Exec(ctx, sql, franchiseID, medicineID, batchNumber, expiryDate, delta)
	if err != nil {
		return fmt.Errorf("decrement batch balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("batch_balance", batchNumber)
	}

	return nil
}

// AddToAggregateBalance applies a signed delta to the per-(franchise,
// medicine) total with the same guard semantics as batch rows.
func (r *StockRepo) AddToAggregateBalance(ctx context.Context, franchiseID, medicineID id.ID, delta types.Quantity) error {
	querier := r.txManager.GetQuerier(ctx)

	if delta >= 0 {
		sql := `
			INSERT INTO stock_aggregate_balances
				(franchise_id, medicine_id, quantity, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (franchise_id, medicine_id) DO UPDATE SET
				quantity = stock_aggregate_balances.quantity + EXCLUDED.quantity,
				updated_at = NOW()
		`
		if _, err := querier.Exec(ctx, sql, franchiseID, medicineID, delta); err != nil {
			return fmt.Errorf("upsert aggregate balance: %w", err)
		}
		return nil
	}

	sql := `
		UPDATE stock_aggregate_balances
		SET quantity = quantity + $3, updated_at = NOW()
		WHERE franchise_id = $1 AND medicine_id = $2
		  AND quantity + $3 >= 0
	`
	result, err := querier.Exec(ctx, sql, franchiseID, medicineID, delta)
	if err != nil {
		return fmt.Errorf("decrement aggregate balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("aggregate_balance", medicineID.String())
	}

	return nil
}

// AggregateBalanceForUpdate reads the aggregate quantity with a row lock.
// A missing row counts as zero (and locks nothing).
func (r *StockRepo) AggregateBalanceForUpdate(ctx context.Context, franchiseID, medicineID id.ID) (types.Quantity, error) {
	sql := `
		SELECT quantity
		FROM stock_aggregate_balances
		WHERE franchise_id = $1 AND medicine_id = $2
		FOR UPDATE
	`

	var qty types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, franchiseID, medicineID).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get aggregate balance for update: %w", err)
	}

	return qty, nil
}

// BatchBalances lists batch rows for a franchise.
func (r *StockRepo) BatchBalances(ctx context.Context, franchiseID id.ID, medicineID *id.ID, excludeZero bool) ([]entity.BatchBalance, error) {
	q := r.builder.
		Select(
			"franchise_id", "medicine_id", "batch_number", "expiry_date",
			"quantity", "created_at", "updated_at",
		).
		From(batchBalancesTable).
		Where(squirrel.Eq{"franchise_id": franchiseID})

	if medicineID != nil {
		q = q.Where(squirrel.Eq{"medicine_id": *medicineID})
	}
	if excludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	q = q.OrderBy("medicine_id", "expiry_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.BatchBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select batch balances: %w", err)
	}

	return balances, nil
}

// AggregateBalances lists aggregate rows for a franchise.
func (r *StockRepo) AggregateBalances(ctx context.Context, franchiseID id.ID) ([]entity.AggregateBalance, error) {
	q := r.builder.
		Select("franchise_id", "medicine_id", "quantity", "updated_at").
		From(aggregateBalancesTable).
		Where(squirrel.Eq{"franchise_id": franchiseID}).
		OrderBy("medicine_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.AggregateBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select aggregate balances: %w", err)
	}

	return balances, nil
}

// LedgerHistory returns entries for a medicine, newest first.
func (r *StockRepo) LedgerHistory(ctx context.Context, medicineID id.ID, filter stockledger.HistoryFilter) ([]entity.LedgerEntry, error) {
	q := r.builder.
		Select(
			"line_id", "transaction_id", "franchise_id", "medicine_id",
			"batch_number", "expiry_date", "qty_change", "rate", "amount",
			"created_at",
		).
		From(ledgerEntriesTable).
		Where(squirrel.Eq{"medicine_id": medicineID})

	if filter.FranchiseID != nil {
		q = q.Where(squirrel.Eq{"franchise_id": *filter.FranchiseID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return entries, nil
}

var _ stockledger.Repository = (*StockRepo)(nil)
