// Package sale provides the Sale document: head office selling medicines to
// a franchise. Stock moves only when a transport for the sale is delivered.
package sale

import (
	"context"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// Sale is one head-office-to-franchise sale.
type Sale struct {
	entity.Document

	FranchiseID id.ID `db:"franchise_id" json:"franchiseId"`

	// TotalAmount is the sum of line amounts at the standing rate
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one sold medicine. Batch metadata, when assigned by the admin,
// pins the exact lot the franchise will receive; otherwise delivery splits
// the quantity over the admin pool's batches FEFO.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`

	// Rate is the per-unit transfer price (medicine standing rate)
	Rate types.Money `db:"rate" json:"rate"`

	// Amount = Rate × Quantity
	Amount types.Money `db:"amount" json:"amount"`

	BatchNumber string     `db:"batch_number" json:"batchNumber,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
}

// NewSale creates a new sale document.
func NewSale(franchiseID id.ID) *Sale {
	return &Sale{
		Document:    entity.NewDocument(),
		FranchiseID: franchiseID,
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a sale line.
func (s *Sale) AddLine(medicineID id.ID, quantity types.Quantity, rate types.Money, batchNumber string, expiryDate *time.Time) {
	s.Lines = append(s.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(s.Lines) + 1,
		MedicineID:  medicineID,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      rate.Mul(quantity.Decimal()),
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
	})
}

// RecalculateTotal recomputes the header total from lines.
func (s *Sale) RecalculateTotal() {
	total := types.ZeroMoney()
	for _, line := range s.Lines {
		total = total.Add(line.Amount)
	}
	s.TotalAmount = total
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(s.FranchiseID) {
		return apperror.NewValidation("franchise is required").
			WithDetail("field", "franchiseId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
		if id.IsNil(line.MedicineID) {
			return apperror.NewValidation("medicine is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.BatchNumber != "" && line.ExpiryDate == nil {
			return apperror.NewValidation("batch requires an expiry date").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// LinesEqual reports whether two line sets describe the same goods
// (medicine, quantity, batch). Used to tell franchise-only edits apart.
func LinesEqual(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].MedicineID != b[i].MedicineID ||
			a[i].Quantity != b[i].Quantity ||
			a[i].BatchNumber != b[i].BatchNumber {
			return false
		}
	}
	return true
}
