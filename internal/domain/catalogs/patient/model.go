// Package patient provides the Patient catalog.
package patient

import (
	"context"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
)

// Gender of a patient.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Patient is a registered clinic patient. Patients belong to the franchise
// that registered them.
type Patient struct {
	entity.Catalog

	// FranchiseID is the registering franchise
	FranchiseID id.ID `db:"franchise_id" json:"franchiseId"`

	Phone   string  `db:"phone" json:"phone"`
	Gender  Gender  `db:"gender" json:"gender"`
	Age     int     `db:"age" json:"age"`
	Address *string `db:"address" json:"address,omitempty"`

	RegisteredAt time.Time `db:"registered_at" json:"registeredAt"`
}

// NewPatient creates a Patient with required fields.
func NewPatient(code, name string, franchiseID id.ID, phone string) *Patient {
	return &Patient{
		Catalog:      entity.NewCatalog(code, name),
		FranchiseID:  franchiseID,
		Phone:        phone,
		RegisteredAt: time.Now().UTC(),
	}
}

// Validate implements entity.Validatable interface.
func (p *Patient) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.FranchiseID) {
		return apperror.NewValidation("franchise is required").
			WithDetail("field", "franchiseId")
	}
	if p.Age < 0 || p.Age > 150 {
		return apperror.NewValidation("age is out of range").
			WithDetail("field", "age").
			WithDetail("value", p.Age)
	}
	if p.Gender != "" && p.Gender != GenderMale && p.Gender != GenderFemale && p.Gender != GenderOther {
		return apperror.NewValidation("invalid gender").
			WithDetail("field", "gender").
			WithDetail("value", string(p.Gender))
	}

	return nil
}
