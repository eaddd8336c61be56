package catalog_repo

import (
	"clinicore/internal/domain/catalogs/franchise"
	"clinicore/internal/infrastructure/storage/postgres"
)

const franchisesTable = "cat_franchises"

// FranchiseRepo implements franchise.Repository.
type FranchiseRepo struct {
	*BaseCatalogRepo[*franchise.Franchise]
}

// NewFranchiseRepo creates a new franchise repository.
func NewFranchiseRepo(txManager *postgres.TxManager) *FranchiseRepo {
	return &FranchiseRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			franchisesTable,
			postgres.ExtractDBColumns[franchise.Franchise](),
			func() *franchise.Franchise { return &franchise.Franchise{} },
		),
	}
}

var _ franchise.Repository = (*FranchiseRepo)(nil)
