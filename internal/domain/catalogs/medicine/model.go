// Package medicine provides the Medicine catalog: the drugs a clinic stocks,
// with their standing rate and MRP.
package medicine

import (
	"context"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/types"
)

// Medicine is one stocked drug.
type Medicine struct {
	entity.Catalog

	// Brand is the manufacturer brand name
	Brand string `db:"brand" json:"brand"`

	// Unit is the dispensing unit (tablet, strip, bottle)
	Unit string `db:"unit" json:"unit"`

	// Rate is the standing per-unit rate used for ledger amounts
	Rate types.Money `db:"rate" json:"rate"`

	// MRP is the maximum retail price per unit
	MRP types.Money `db:"mrp" json:"mrp"`
}

// NewMedicine creates a Medicine with required fields.
func NewMedicine(code, name, brand, unit string, rate, mrp types.Money) *Medicine {
	return &Medicine{
		Catalog: entity.NewCatalog(code, name),
		Brand:   brand,
		Unit:    unit,
		Rate:    rate,
		MRP:     mrp,
	}
}

// Validate implements entity.Validatable interface.
func (m *Medicine) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if m.Rate.IsNegative() {
		return apperror.NewValidation("rate cannot be negative").
			WithDetail("field", "rate")
	}
	if m.MRP.IsNegative() {
		return apperror.NewValidation("mrp cannot be negative").
			WithDetail("field", "mrp")
	}
	if m.MRP.LessThan(m.Rate) {
		return apperror.NewValidation("mrp cannot be below rate").
			WithDetail("field", "mrp").
			WithDetail("rate", m.Rate.String()).
			WithDetail("mrp", m.MRP.String())
	}

	return nil
}
