package dto

import (
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/domain/catalogs/patient"
)

// PatientResponse is the public view of a patient.
type PatientResponse struct {
	CatalogResponse
	FranchiseID  string         `json:"franchiseId"`
	Phone        string         `json:"phone"`
	Gender       patient.Gender `json:"gender,omitempty"`
	Age          int            `json:"age"`
	Address      *string        `json:"address,omitempty"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

// FromPatient creates PatientResponse from entity.
func FromPatient(p *patient.Patient) PatientResponse {
	return PatientResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		FranchiseID:     p.FranchiseID.String(),
		Phone:           p.Phone,
		Gender:          p.Gender,
		Age:             p.Age,
		Address:         p.Address,
		RegisteredAt:    p.RegisteredAt,
	}
}

// CreatePatientRequest for registering patients.
// FranchiseID is honored for admin callers only; franchise users always
// register patients into their own franchise.
type CreatePatientRequest struct {
	Code        string         `json:"code"`
	Name        string         `json:"name" binding:"required"`
	FranchiseID *id.ID         `json:"franchiseId,omitempty"`
	Phone       string         `json:"phone" binding:"required"`
	Gender      patient.Gender `json:"gender"`
	Age         int            `json:"age"`
	Address     *string        `json:"address"`
}

// ToEntity converts the request to a domain entity.
func (r CreatePatientRequest) ToEntity(franchiseID id.ID) *patient.Patient {
	p := patient.NewPatient(r.Code, r.Name, franchiseID, r.Phone)
	p.Gender = r.Gender
	p.Age = r.Age
	p.Address = r.Address
	return p
}

// UpdatePatientRequest for updating patients.
type UpdatePatientRequest struct {
	Name    *string         `json:"name"`
	Phone   *string         `json:"phone"`
	Gender  *patient.Gender `json:"gender"`
	Age     *int            `json:"age"`
	Address *string         `json:"address"`
}

// ApplyTo applies non-nil fields onto an existing entity.
func (r UpdatePatientRequest) ApplyTo(p *patient.Patient) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.Gender != nil {
		p.Gender = *r.Gender
	}
	if r.Age != nil {
		p.Age = *r.Age
	}
	if r.Address != nil {
		p.Address = r.Address
	}
}
