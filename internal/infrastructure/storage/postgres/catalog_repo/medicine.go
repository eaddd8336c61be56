package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicore/internal/core/id"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/infrastructure/storage/postgres"
)

const medicinesTable = "cat_medicines"

// MedicineRepo implements medicine.Repository.
type MedicineRepo struct {
	*BaseCatalogRepo[*medicine.Medicine]
}

// NewMedicineRepo creates a new medicine repository.
func NewMedicineRepo(txManager *postgres.TxManager) *MedicineRepo {
	return &MedicineRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			medicinesTable,
			postgres.ExtractDBColumns[medicine.Medicine](),
			func() *medicine.Medicine { return &medicine.Medicine{} },
		),
	}
}

// GetMany retrieves medicines by ids in one round trip.
func (r *MedicineRepo) GetMany(ctx context.Context, ids []id.ID) ([]*medicine.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*medicine.Medicine
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get many: %w", err)
	}

	return items, nil
}

// FindByName retrieves a medicine by exact name.
func (r *MedicineRepo) FindByName(ctx context.Context, name string) (*medicine.Medicine, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"name": name}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

var _ medicine.Repository = (*MedicineRepo)(nil)
