package stockledger

import (
	"context"
	"time"

	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// Repository defines storage operations for the stock ledger and balances.
// All mutating methods are expected to run inside an ambient transaction
// carried by the context; the caller owns the transaction boundary.
type Repository interface {
	// Eligible batches

	// EligibleBatches returns batch lots for (franchise, medicine) with
	// quantity > 0 and expiry strictly beyond asOf + horizonDays, ordered
	// by expiry ascending (ties by row creation order).
	EligibleBatches(ctx context.Context, franchiseID, medicineID id.ID, asOf time.Time, horizonDays int) ([]BatchLot, error)

	// Ledger entries

	// InsertEntries batch inserts ledger entries (COPY inside a transaction).
	InsertEntries(ctx context.Context, entries []entity.LedgerEntry) error

	// EntriesByTransaction retrieves all entries for a transaction.
	EntriesByTransaction(ctx context.Context, transactionID id.ID) ([]entity.LedgerEntry, error)

	// DeleteEntriesByTransaction removes all entries for a transaction
	// (reversal flow only; posted entries are otherwise immutable).
	DeleteEntriesByTransaction(ctx context.Context, transactionID id.ID) error

	// ReassignEntriesFranchise re-points a transaction's entries to a new
	// franchise (sale franchise change).
	ReassignEntriesFranchise(ctx context.Context, transactionID, franchiseID id.ID) error

	// Balances

	// AddToBatchBalance applies a signed delta to a batch row. Positive
	// deltas upsert (create-if-absent-then-increment); negative deltas use
	// a conditional update that refuses to drive the row negative and
	// report a concurrent-modification conflict instead.
	AddToBatchBalance(ctx context.Context, franchiseID, medicineID id.ID, batchNumber string, expiryDate time.Time, delta types.Quantity) error

	// AddToAggregateBalance applies a signed delta to the denormalized
	// per-(franchise, medicine) total, with the same guard semantics.
	AddToAggregateBalance(ctx context.Context, franchiseID, medicineID id.ID, delta types.Quantity) error

	// AggregateBalanceForUpdate reads the aggregate quantity with a row
	// lock (consultation sufficiency pre-check).
	AggregateBalanceForUpdate(ctx context.Context, franchiseID, medicineID id.ID) (types.Quantity, error)

	// Reads

	// BatchBalances lists batch rows for a franchise (optionally one medicine).
	BatchBalances(ctx context.Context, franchiseID id.ID, medicineID *id.ID, excludeZero bool) ([]entity.BatchBalance, error)

	// AggregateBalances lists aggregate rows for a franchise.
	AggregateBalances(ctx context.Context, franchiseID id.ID) ([]entity.AggregateBalance, error)

	// LedgerHistory returns entries for a medicine, newest first.
	LedgerHistory(ctx context.Context, medicineID id.ID, filter HistoryFilter) ([]entity.LedgerEntry, error)
}

// HistoryFilter for ledger history queries.
type HistoryFilter struct {
	FranchiseID *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
