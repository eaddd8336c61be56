// Package adminstock manages the central (admin) stock pool that feeds
// franchises through transport deliveries. The pool tracks one quantity per
// medicine; batch reference records are kept alongside so dispatches can
// name concrete batches.
package adminstock

import (
	"context"
	"time"

	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// BatchRecord is a reference row describing a batch that entered the pool
// via refill. Dispatch splits pick batch numbers and expiries from here.
type BatchRecord struct {
	MedicineID  id.ID          `db:"medicine_id" json:"medicineId"`
	BatchNumber string         `db:"batch_number" json:"batchNumber"`
	ExpiryDate  time.Time      `db:"expiry_date" json:"expiryDate"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// Repository persists the admin pool balances and batch records.
type Repository interface {
	// Increment adds quantity to a medicine's pool row, creating it at
	// zero on first refill.
	Increment(ctx context.Context, medicineID id.ID, qty types.Quantity) error

	// DecrementIfAvailable subtracts quantity only when the row holds
	// enough; returns false when the guard fails (no row counts as zero).
	DecrementIfAvailable(ctx context.Context, medicineID id.ID, qty types.Quantity) (bool, error)

	// Balance reads one medicine's pool quantity; zero when absent.
	Balance(ctx context.Context, medicineID id.ID) (types.Quantity, error)

	// List returns all pool rows, optionally hiding empty ones.
	List(ctx context.Context, excludeZero bool) ([]entity.AdminStockBalance, error)

	// UpsertBatchRecord adds quantity to a (medicine, batch) reference
	// row, creating it on first sight.
	UpsertBatchRecord(ctx context.Context, rec BatchRecord) error

	// BatchRecords lists a medicine's batch records ordered by expiry
	// ascending, skipping exhausted ones.
	BatchRecords(ctx context.Context, medicineID id.ID) ([]BatchRecord, error)

	// ConsumeBatchRecord subtracts dispatched quantity from a batch
	// record, flooring at zero. Records are keyed by (medicine, batch,
	// expiry): the same batch number can enter the pool with different
	// expiry dates.
	ConsumeBatchRecord(ctx context.Context, medicineID id.ID, batchNumber string, expiryDate time.Time, qty types.Quantity) error
}
