// Package txn holds the stock transaction header repository. Headers group
// ledger entries under one business event and carry a human-readable number.
package txn

import (
	"context"

	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
)

// Repository persists stock transaction headers.
type Repository interface {
	// Create inserts a header. The (type, source_id) pair is unique.
	Create(ctx context.Context, txn entity.StockTransaction) error

	// GetBySource finds the header for a source document, nil when none
	// exists (the document was never posted).
	GetBySource(ctx context.Context, txType entity.TransactionType, sourceID id.ID) (*entity.StockTransaction, error)

	// Get loads a header by id.
	Get(ctx context.Context, txnID id.ID) (*entity.StockTransaction, error)

	// UpdateFranchise re-points the header when a sale's franchise changes.
	UpdateFranchise(ctx context.Context, txnID, franchiseID id.ID) error

	// Delete removes a header after its entries were reversed.
	Delete(ctx context.Context, txnID id.ID) error
}
