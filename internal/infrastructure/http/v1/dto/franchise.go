package dto

import (
	"clinicore/internal/domain/catalogs/franchise"
)

// FranchiseResponse is the public view of a franchise.
type FranchiseResponse struct {
	CatalogResponse
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Active  bool   `json:"active"`
}

// FromFranchise creates FranchiseResponse from entity.
func FromFranchise(f *franchise.Franchise) FranchiseResponse {
	return FranchiseResponse{
		CatalogResponse: FromCatalog(f.Catalog),
		Address:         f.Address,
		Phone:           f.Phone,
		Active:          f.Active,
	}
}

// CreateFranchiseRequest for creating franchises.
type CreateFranchiseRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone"`
}

// ToEntity converts the request to a domain entity.
func (r CreateFranchiseRequest) ToEntity() *franchise.Franchise {
	f := franchise.NewFranchise(r.Code, r.Name, r.Address)
	f.Phone = r.Phone
	return f
}

// UpdateFranchiseRequest for updating franchises.
type UpdateFranchiseRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Active  *bool   `json:"active"`
}

// ApplyTo applies non-nil fields onto an existing entity.
func (r UpdateFranchiseRequest) ApplyTo(f *franchise.Franchise) {
	if r.Name != nil {
		f.Name = *r.Name
	}
	if r.Address != nil {
		f.Address = *r.Address
	}
	if r.Phone != nil {
		f.Phone = *r.Phone
	}
	if r.Active != nil {
		f.Active = *r.Active
	}
}
