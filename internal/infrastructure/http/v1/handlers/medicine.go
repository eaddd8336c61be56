package handlers

import (
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// MedicineHTTPHandler serves the medicine catalog.
type MedicineHTTPHandler = CatalogHandler[
	*medicine.Medicine,
	dto.CreateMedicineRequest,
	dto.UpdateMedicineRequest,
]

// NewMedicineHandler creates a medicine catalog handler.
func NewMedicineHandler(
	base *BaseHandler,
	service *medicine.Service,
) *MedicineHTTPHandler {
	config := CatalogHandlerConfig[
		*medicine.Medicine,
		dto.CreateMedicineRequest,
		dto.UpdateMedicineRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "medicine",

		MapCreateDTO: func(req dto.CreateMedicineRequest) *medicine.Medicine {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateMedicineRequest, existing *medicine.Medicine) *medicine.Medicine {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(m *medicine.Medicine) any {
			return dto.FromMedicine(m)
		},
	}

	return NewCatalogHandler(base, config)
}
