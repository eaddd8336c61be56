package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/domain/txn"
	"clinicore/internal/infrastructure/storage/postgres"
)

const transactionsTable = "stock_transactions"

// TransactionRepo implements txn.Repository.
type TransactionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTransactionRepo creates a new stock transaction header repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a header. The (type, source_id) pair is unique.
func (r *TransactionRepo) Create(ctx context.Context, header entity.StockTransaction) error {
	q := r.builder.
		Insert(transactionsTable).
		Columns("id", "number", "type", "source_id", "franchise_id", "created_at").
		Values(header.ID, header.Number, header.Type, header.SourceID, header.FranchiseID, header.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock transaction: %w", err)
	}

	return nil
}

// GetBySource finds the header for a source document; nil when the document
// was never posted.
func (r *TransactionRepo) GetBySource(ctx context.Context, txType entity.TransactionType, sourceID id.ID) (*entity.StockTransaction, error) {
	q := r.builder.
		Select("id", "number", "type", "source_id", "franchise_id", "created_at").
		From(transactionsTable).
		Where(squirrel.Eq{"type": txType, "source_id": sourceID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var header entity.StockTransaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &header, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock transaction by source: %w", err)
	}

	return &header, nil
}

// Get loads a header by id.
func (r *TransactionRepo) Get(ctx context.Context, txnID id.ID) (*entity.StockTransaction, error) {
	q := r.builder.
		Select("id", "number", "type", "source_id", "franchise_id", "created_at").
		From(transactionsTable).
		Where(squirrel.Eq{"id": txnID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var header entity.StockTransaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &header, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_transaction", txnID.String())
		}
		return nil, fmt.Errorf("get stock transaction: %w", err)
	}

	return &header, nil
}

// UpdateFranchise re-points the header to a new franchise.
func (r *TransactionRepo) UpdateFranchise(ctx context.Context, txnID, franchiseID id.ID) error {
	q := r.builder.
		Update(transactionsTable).
		Set("franchise_id", franchiseID).
		Where(squirrel.Eq{"id": txnID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock_transaction", txnID.String())
	}

	return nil
}

// Delete removes a header after its entries were reversed.
func (r *TransactionRepo) Delete(ctx context.Context, txnID id.ID) error {
	q := r.builder.
		Delete(transactionsTable).
		Where(squirrel.Eq{"id": txnID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete stock transaction: %w", err)
	}

	return nil
}

var _ txn.Repository = (*TransactionRepo)(nil)
