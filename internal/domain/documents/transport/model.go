// Package transport provides the Transport document: the physical movement
// of a sale's goods to the franchise, and the posting that happens when the
// franchise confirms delivery.
package transport

import (
	"context"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// Status is the transport lifecycle state.
// PENDING → DISPATCHED → DELIVERED, strictly forward.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
)

// Transport is one shipment against a sale.
type Transport struct {
	entity.Document

	SaleID      id.ID  `db:"sale_id" json:"saleId"`
	FranchiseID id.ID  `db:"franchise_id" json:"franchiseId"`
	Status      Status `db:"status" json:"status"`

	VehicleNo  string `db:"vehicle_no" json:"vehicleNo,omitempty"`
	DriverName string `db:"driver_name" json:"driverName,omitempty"`

	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	// StockPostedAt is set exactly once, when delivery posts stock.
	// It is the idempotency guard for repeated delivery calls.
	StockPostedAt *time.Time `db:"stock_posted_at" json:"stockPostedAt,omitempty"`

	// Details pin which batches ship. Empty details mean the delivery
	// splits the sale quantities over the admin pool's batches FEFO.
	Details []Detail `db:"-" json:"details"`
}

// Detail is one dispatched batch line.
type Detail struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MedicineID  id.ID          `db:"medicine_id" json:"medicineId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	BatchNumber string         `db:"batch_number" json:"batchNumber"`
	ExpiryDate  time.Time      `db:"expiry_date" json:"expiryDate"`
}

// NewTransport creates a pending transport for a sale.
func NewTransport(saleID, franchiseID id.ID) *Transport {
	return &Transport{
		Document:    entity.NewDocument(),
		SaleID:      saleID,
		FranchiseID: franchiseID,
		Status:      StatusPending,
		Details:     make([]Detail, 0),
	}
}

// AddDetail appends a dispatched batch line.
func (t *Transport) AddDetail(medicineID id.ID, quantity types.Quantity, batchNumber string, expiryDate time.Time) {
	t.Details = append(t.Details, Detail{
		LineID:      id.New(),
		LineNo:      len(t.Details) + 1,
		MedicineID:  medicineID,
		Quantity:    quantity,
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
	})
}

// IsPosted reports whether delivery already posted stock.
func (t *Transport) IsPosted() bool {
	return t.StockPostedAt != nil
}

// Validate implements entity.Validatable.
func (t *Transport) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(t.SaleID) {
		return apperror.NewValidation("sale is required").
			WithDetail("field", "saleId")
	}
	if id.IsNil(t.FranchiseID) {
		return apperror.NewValidation("franchise is required").
			WithDetail("field", "franchiseId")
	}
	switch t.Status {
	case StatusPending, StatusDispatched, StatusDelivered:
	default:
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(t.Status))
	}

	for i, d := range t.Details {
		if id.IsNil(d.MedicineID) {
			return apperror.NewValidation("medicine is required").
				WithDetail("field", "details").
				WithDetail("lineNo", i+1)
		}
		if d.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "details").
				WithDetail("lineNo", i+1)
		}
		if d.BatchNumber == "" {
			return apperror.NewValidation("batch number is required").
				WithDetail("field", "details").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
