package patient

import (
	"context"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// Repository defines the interface for Patient persistence.
type Repository interface {
	domain.CatalogRepository[*Patient]

	// FindByPhone retrieves a patient by phone number.
	FindByPhone(ctx context.Context, phone string) (*Patient, error)

	// ListByFranchise retrieves patients registered by one franchise.
	ListByFranchise(ctx context.Context, franchiseID id.ID, filter domain.ListFilter) (domain.ListResult[*Patient], error)
}
