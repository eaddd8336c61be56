// Package medicinebill provides the MedicineBill document: a franchise
// dispensing medicines to a patient against its own stock.
package medicinebill

import (
	"context"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// MedicineBill is one dispensing event. Amounts are recomputed server-side
// from catalog MRPs; client-sent figures are cross-checked only.
type MedicineBill struct {
	entity.Document

	FranchiseID id.ID `db:"franchise_id" json:"franchiseId"`
	PatientID   id.ID `db:"patient_id" json:"patientId"`

	// TotalAmount is the sum of line amounts before discount
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// Discount is an absolute amount, 0 <= Discount <= TotalAmount
	Discount types.Money `db:"discount" json:"discount"`

	// NetAmount = TotalAmount - Discount
	NetAmount types.Money `db:"net_amount" json:"netAmount"`

	// Table part: dispensed medicines
	Lines []Line `db:"-" json:"lines"`
}

// Line is one dispensed medicine.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`

	// MRP is the per-unit price charged to the patient
	MRP types.Money `db:"mrp" json:"mrp"`

	// Amount = MRP × Quantity
	Amount types.Money `db:"amount" json:"amount"`
}

// NewMedicineBill creates a new bill document.
func NewMedicineBill(franchiseID, patientID id.ID) *MedicineBill {
	return &MedicineBill{
		Document:    entity.NewDocument(),
		FranchiseID: franchiseID,
		PatientID:   patientID,
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a dispensing line.
func (b *MedicineBill) AddLine(medicineID id.ID, quantity types.Quantity, mrp types.Money) {
	b.Lines = append(b.Lines, Line{
		LineID:     id.New(),
		LineNo:     len(b.Lines) + 1,
		MedicineID: medicineID,
		Quantity:   quantity,
		MRP:        mrp,
		Amount:     mrp.Mul(quantity.Decimal()),
	})
}

// Validate implements entity.Validatable.
func (b *MedicineBill) Validate(ctx context.Context) error {
	if err := b.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(b.FranchiseID) {
		return apperror.NewValidation("franchise is required").
			WithDetail("field", "franchiseId")
	}
	if id.IsNil(b.PatientID) {
		return apperror.NewValidation("patient is required").
			WithDetail("field", "patientId")
	}
	if len(b.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	if b.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}

	for i, line := range b.Lines {
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
	}

	return nil
}
