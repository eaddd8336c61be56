// Package consultation provides the Consultation document: a clinical visit
// that may bundle service charges with dispensed medicines.
package consultation

import (
	"context"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// Consultation is one visit. Medicines are optional; a services-only
// consultation never touches the stock engine.
type Consultation struct {
	entity.Document

	FranchiseID id.ID  `db:"franchise_id" json:"franchiseId"`
	PatientID   id.ID  `db:"patient_id" json:"patientId"`
	DoctorName  string `db:"doctor_name" json:"doctorName,omitempty"`

	// TotalAmount = service fees + medicine amounts
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// Optional payment receipt issued with the visit.
	ReceiptNumber string       `db:"receipt_number" json:"receiptNumber,omitempty"`
	ReceiptAmount *types.Money `db:"receipt_amount" json:"receiptAmount,omitempty"`

	Services  []ServiceLine  `db:"-" json:"services"`
	Medicines []MedicineLine `db:"-" json:"medicines"`
}

// ServiceLine is one charged service (consultation fee, dressing, etc.).
type ServiceLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	Name string      `db:"name" json:"name"`
	Fee  types.Money `db:"fee" json:"fee"`
}

// MedicineLine is one dispensed medicine. The same medicine may appear on
// several lines; sufficiency is checked on the summed quantity.
type MedicineLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	MRP        types.Money    `db:"mrp" json:"mrp"`
	Amount     types.Money    `db:"amount" json:"amount"`
}

// NewConsultation creates a new consultation document.
func NewConsultation(franchiseID, patientID id.ID) *Consultation {
	return &Consultation{
		Document:    entity.NewDocument(),
		FranchiseID: franchiseID,
		PatientID:   patientID,
		Services:    make([]ServiceLine, 0),
		Medicines:   make([]MedicineLine, 0),
	}
}

// AddService appends a service charge.
func (c *Consultation) AddService(name string, fee types.Money) {
	c.Services = append(c.Services, ServiceLine{
		LineID: id.New(),
		LineNo: len(c.Services) + 1,
		Name:   name,
		Fee:    fee,
	})
}

// AddMedicine appends a dispensing line.
func (c *Consultation) AddMedicine(medicineID id.ID, quantity types.Quantity, mrp types.Money) {
	c.Medicines = append(c.Medicines, MedicineLine{
		LineID:     id.New(),
		LineNo:     len(c.Medicines) + 1,
		MedicineID: medicineID,
		Quantity:   quantity,
		MRP:        mrp,
		Amount:     mrp.Mul(quantity.Decimal()),
	})
}

// HasMedicines reports whether the visit dispenses anything.
func (c *Consultation) HasMedicines() bool {
	return len(c.Medicines) > 0
}

// HasReceipt reports whether a payment receipt accompanies the visit.
func (c *Consultation) HasReceipt() bool {
	return c.ReceiptAmount != nil
}

// Validate implements entity.Validatable.
func (c *Consultation) Validate(ctx context.Context) error {
	if err := c.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(c.FranchiseID) {
		return apperror.NewValidation("franchise is required").
			WithDetail("field", "franchiseId")
	}
	if id.IsNil(c.PatientID) {
		return apperror.NewValidation("patient is required").
			WithDetail("field", "patientId")
	}
	if len(c.Services) == 0 && len(c.Medicines) == 0 {
		return apperror.NewValidation("consultation needs at least one service or medicine").
			WithDetail("field", "services")
	}
	if c.ReceiptAmount != nil {
		if !c.ReceiptAmount.IsPositive() {
			return apperror.NewValidation("receipt amount must be positive").
				WithDetail("field", "receiptAmount")
		}
		if c.ReceiptAmount.GreaterThan(c.TotalAmount) {
			return apperror.NewValidation("receipt amount exceeds the visit total").
				WithDetail("field", "receiptAmount").
				WithDetail("total", c.TotalAmount.String())
		}
	}

	for i, line := range c.Services {
		if line.Name == "" {
			return apperror.NewValidation("service name is required").
				WithDetail("field", "services").
				WithDetail("lineNo", i+1)
		}
		if line.Fee.IsNegative() {
			return apperror.NewValidation("service fee cannot be negative").
				WithDetail("field", "services").
				WithDetail("lineNo", i+1)
		}
	}
	for i, line := range c.Medicines {
		if id.IsNil(line.MedicineID) {
			return apperror.NewValidation("medicine is required").
				WithDetail("field", "medicines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "medicines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
