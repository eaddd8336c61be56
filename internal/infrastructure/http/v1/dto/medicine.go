package dto

import (
	"clinicore/internal/core/types"
	"clinicore/internal/domain/catalogs/medicine"
)

// MedicineResponse is the public view of a medicine.
type MedicineResponse struct {
	CatalogResponse
	Brand string      `json:"brand"`
	Unit  string      `json:"unit"`
	Rate  types.Money `json:"rate"`
	MRP   types.Money `json:"mrp"`
}

// FromMedicine creates MedicineResponse from entity.
func FromMedicine(m *medicine.Medicine) MedicineResponse {
	return MedicineResponse{
		CatalogResponse: FromCatalog(m.Catalog),
		Brand:           m.Brand,
		Unit:            m.Unit,
		Rate:            m.Rate,
		MRP:             m.MRP,
	}
}

// CreateMedicineRequest for creating medicines.
type CreateMedicineRequest struct {
	Code  string      `json:"code"`
	Name  string      `json:"name" binding:"required"`
	Brand string      `json:"brand"`
	Unit  string      `json:"unit" binding:"required"`
	Rate  types.Money `json:"rate"`
	MRP   types.Money `json:"mrp"`
}

// ToEntity converts the request to a domain entity.
func (r CreateMedicineRequest) ToEntity() *medicine.Medicine {
	return medicine.NewMedicine(r.Code, r.Name, r.Brand, r.Unit, r.Rate, r.MRP)
}

// UpdateMedicineRequest for updating medicines.
type UpdateMedicineRequest struct {
	Name  *string      `json:"name"`
	Brand *string      `json:"brand"`
	Unit  *string      `json:"unit"`
	Rate  *types.Money `json:"rate"`
	MRP   *types.Money `json:"mrp"`
}

// ApplyTo applies non-nil fields onto an existing entity.
func (r UpdateMedicineRequest) ApplyTo(m *medicine.Medicine) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Brand != nil {
		m.Brand = *r.Brand
	}
	if r.Unit != nil {
		m.Unit = *r.Unit
	}
	if r.Rate != nil {
		m.Rate = *r.Rate
	}
	if r.MRP != nil {
		m.MRP = *r.MRP
	}
}
