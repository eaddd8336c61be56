// Package franchise provides the Franchise catalog: the clinic locations
// that hold stock and serve patients.
package franchise

import (
	"context"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
)

// Franchise is one clinic location.
type Franchise struct {
	entity.Catalog

	Address string `db:"address" json:"address"`
	Phone   string `db:"phone" json:"phone"`

	// Active franchises can transact; deactivated ones keep their history
	Active bool `db:"active" json:"active"`
}

// NewFranchise creates a Franchise with required fields.
func NewFranchise(code, name, address string) *Franchise {
	return &Franchise{
		Catalog: entity.NewCatalog(code, name),
		Address: address,
		Active:  true,
	}
}

// Validate implements entity.Validatable interface.
func (f *Franchise) Validate(ctx context.Context) error {
	if err := f.Catalog.Validate(ctx); err != nil {
		return err
	}
	if f.Address == "" {
		return apperror.NewValidation("address is required").
			WithDetail("field", "address")
	}
	return nil
}
