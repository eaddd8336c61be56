package handlers

import (
	"clinicore/internal/domain/catalogs/franchise"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// FranchiseHTTPHandler serves the franchise catalog.
type FranchiseHTTPHandler = CatalogHandler[
	*franchise.Franchise,
	dto.CreateFranchiseRequest,
	dto.UpdateFranchiseRequest,
]

// NewFranchiseHandler creates a franchise catalog handler.
func NewFranchiseHandler(
	base *BaseHandler,
	service *franchise.Service,
) *FranchiseHTTPHandler {
	config := CatalogHandlerConfig[
		*franchise.Franchise,
		dto.CreateFranchiseRequest,
		dto.UpdateFranchiseRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "franchise",

		MapCreateDTO: func(req dto.CreateFranchiseRequest) *franchise.Franchise {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateFranchiseRequest, existing *franchise.Franchise) *franchise.Franchise {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(f *franchise.Franchise) any {
			return dto.FromFranchise(f)
		},
	}

	return NewCatalogHandler(base, config)
}
