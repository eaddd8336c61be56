package entity

import (
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// TransactionType tags the business event a stock transaction belongs to.
type TransactionType string

const (
	TransactionTypeMedicineBill TransactionType = "medicine_bill"
	TransactionTypeConsultation TransactionType = "consultation"
	TransactionTypeSale         TransactionType = "sale"
)

// StockTransaction is the header grouping ledger entries for one logical
// business event. One per bill/consultation; for sales it is created (or
// reused, upsert-by-sale) when a transport posts stock.
type StockTransaction struct {
	ID          id.ID           `db:"id" json:"id"`
	Number      string          `db:"number" json:"number"`
	Type        TransactionType `db:"type" json:"type"`
	SourceID    id.ID           `db:"source_id" json:"sourceId"`
	FranchiseID id.ID           `db:"franchise_id" json:"franchiseId"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// NewStockTransaction creates a transaction header.
func NewStockTransaction(txType TransactionType, sourceID, franchiseID id.ID, number string) StockTransaction {
	return StockTransaction{
		ID:          id.New(),
		Number:      number,
		Type:        txType,
		SourceID:    sourceID,
		FranchiseID: franchiseID,
		CreatedAt:   time.Now().UTC(),
	}
}

// LedgerEntry is one immutable quantity movement against a specific batch.
// Entries are never updated in place; a reversal deletes the whole set for a
// transaction after adding the quantities back to the balances.
type LedgerEntry struct {
	// LineID is unique identifier for this entry (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// TransactionID groups entries under one StockTransaction
	TransactionID id.ID `db:"transaction_id" json:"transactionId"`

	FranchiseID id.ID     `db:"franchise_id" json:"franchiseId"`
	MedicineID  id.ID     `db:"medicine_id" json:"medicineId"`
	BatchNumber string    `db:"batch_number" json:"batchNumber"`
	ExpiryDate  time.Time `db:"expiry_date" json:"expiryDate"`

	// QtyChange is signed: negative = outflow, positive = inflow
	QtyChange types.Quantity `db:"qty_change" json:"qtyChange"`

	// Rate is the medicine's standing rate at posting time
	Rate types.Money `db:"rate" json:"rate"`

	// Amount = Rate × |QtyChange| (stored unsigned-magnitude)
	Amount types.Money `db:"amount" json:"amount"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLedgerEntry creates an entry; amount is derived from rate and quantity.
func NewLedgerEntry(
	transactionID, franchiseID, medicineID id.ID,
	batchNumber string,
	expiryDate time.Time,
	qtyChange types.Quantity,
	rate types.Money,
) LedgerEntry {
	return LedgerEntry{
		LineID:        id.New(),
		TransactionID: transactionID,
		FranchiseID:   franchiseID,
		MedicineID:    medicineID,
		BatchNumber:   batchNumber,
		ExpiryDate:    expiryDate,
		QtyChange:     qtyChange,
		Rate:          rate,
		Amount:        rate.Mul(qtyChange.Abs().Decimal()),
		CreatedAt:     time.Now().UTC(),
	}
}

// BatchBalance is the quantity-on-hand for one batch of one medicine at one
// franchise. Rows are created on first stock-in and never deleted;
// zero-quantity rows may remain.
type BatchBalance struct {
	FranchiseID id.ID     `db:"franchise_id" json:"franchiseId"`
	MedicineID  id.ID     `db:"medicine_id" json:"medicineId"`
	BatchNumber string    `db:"batch_number" json:"batchNumber"`
	ExpiryDate  time.Time `db:"expiry_date" json:"expiryDate"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// AggregateBalance is the denormalized per-(franchise, medicine) total,
// always equal to the sum of its batch rows. Both are mutated in the same
// transaction.
type AggregateBalance struct {
	FranchiseID id.ID          `db:"franchise_id" json:"franchiseId"`
	MedicineID  id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// AdminStockBalance is centrally-held, non-batched stock awaiting transport
// to a franchise.
type AdminStockBalance struct {
	MedicineID id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}
