package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/internal/domain/adminstock"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	adminBalancesTable = "admin_stock_balances"
	adminBatchesTable  = "admin_stock_batches"
)

// AdminStockRepo implements adminstock.Repository.
type AdminStockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewAdminStockRepo creates a new admin stock pool repository.
func NewAdminStockRepo(txManager *postgres.TxManager) *AdminStockRepo {
	return &AdminStockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Increment adds quantity to a medicine's pool row.
func (r *AdminStockRepo) Increment(ctx context.Context, medicineID id.ID, qty types.Quantity) error {
	sql := `
		INSERT INTO admin_stock_balances (medicine_id, quantity, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (medicine_id) DO UPDATE SET
			quantity = admin_stock_balances.quantity + EXCLUDED.quantity,
			updated_at = NOW()
	`

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, medicineID, qty); err != nil {
		return fmt.Errorf("increment admin stock: %w", err)
	}

	return nil
}

// DecrementIfAvailable subtracts quantity only when the row holds enough.
// A missing row counts as zero, so the guard fails the same way.
func (r *AdminStockRepo) DecrementIfAvailable(ctx context.Context, medicineID id.ID, qty types.Quantity) (bool, error) {
	sql := `
		UPDATE admin_stock_balances
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE medicine_id = $1 AND quantity >= $2
	`

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, medicineID, qty)
	if err != nil {
		return false, fmt.Errorf("decrement admin stock: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Balance reads one medicine's pool quantity; zero when absent.
func (r *AdminStockRepo) Balance(ctx context.Context, medicineID id.ID) (types.Quantity, error) {
	sql := `SELECT quantity FROM admin_stock_balances WHERE medicine_id = $1`

	var qty types.Quantity
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, medicineID).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get admin stock balance: %w", err)
	}

	return qty, nil
}

// List returns all pool rows.
func (r *AdminStockRepo) List(ctx context.Context, excludeZero bool) ([]entity.AdminStockBalance, error) {
	q := r.builder.
		Select("medicine_id", "quantity", "updated_at").
		From(adminBalancesTable)

	if excludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	q = q.OrderBy("medicine_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.AdminStockBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select admin stock balances: %w", err)
	}

	return balances, nil
}

// UpsertBatchRecord adds quantity to a (medicine, batch) reference row.
func (r *AdminStockRepo) UpsertBatchRecord(ctx context.Context, rec adminstock.BatchRecord) error {
	sql := `
		INSERT INTO admin_stock_batches
			(medicine_id, batch_number, expiry_date, quantity, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (medicine_id, batch_number, expiry_date) DO UPDATE SET
			quantity = admin_stock_batches.quantity + EXCLUDED.quantity
	`

	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		rec.MedicineID, rec.BatchNumber, rec.ExpiryDate, rec.Quantity)
	if err != nil {
		return fmt.Errorf("upsert admin batch record: %w", err)
	}

	return nil
}

// BatchRecords lists a medicine's batch records ordered by expiry.
func (r *AdminStockRepo) BatchRecords(ctx context.Context, medicineID id.ID) ([]adminstock.BatchRecord, error) {
	q := r.builder.
		Select("medicine_id", "batch_number", "expiry_date", "quantity", "created_at").
		From(adminBatchesTable).
		Where(squirrel.Eq{"medicine_id": medicineID}).
		Where(squirrel.Gt{"quantity": int64(0)}).
		OrderBy("expiry_date", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []adminstock.BatchRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select admin batch records: %w", err)
	}

	return records, nil
}

// ConsumeBatchRecord subtracts dispatched quantity, flooring at zero.
func (r *AdminStockRepo) ConsumeBatchRecord(ctx context.Context, medicineID id.ID, batchNumber string, expiryDate time.Time, qty types.Quantity) error {
	sql := `
		UPDATE admin_stock_batches
		SET quantity = GREATEST(quantity - $4, 0)
		WHERE medicine_id = $1 AND batch_number = $2 AND expiry_date = $3
	`

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, medicineID, batchNumber, expiryDate, qty); err != nil {
		return fmt.Errorf("consume admin batch record: %w", err)
	}

	return nil
}

var _ adminstock.Repository = (*AdminStockRepo)(nil)
