package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
	"clinicore/internal/domain/catalogs/patient"
	"clinicore/internal/infrastructure/storage/postgres"
)

const patientsTable = "cat_patients"

// PatientRepo implements patient.Repository.
type PatientRepo struct {
	*BaseCatalogRepo[*patient.Patient]
}

// NewPatientRepo creates a new patient repository.
func NewPatientRepo(txManager *postgres.TxManager) *PatientRepo {
	return &PatientRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			patientsTable,
			postgres.ExtractDBColumns[patient.Patient](),
			func() *patient.Patient { return &patient.Patient{} },
		),
	}
}

// FindByPhone retrieves a patient by phone number.
func (r *PatientRepo) FindByPhone(ctx context.Context, phone string) (*patient.Patient, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"phone": phone}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// ListByFranchise retrieves patients registered by one franchise.
func (r *PatientRepo) ListByFranchise(ctx context.Context, franchiseID id.ID, filter domain.ListFilter) (domain.ListResult[*patient.Patient], error) {
	return r.listWhere(ctx, filter, []squirrel.Sqlizer{
		squirrel.Eq{"franchise_id": franchiseID},
	})
}

var _ patient.Repository = (*PatientRepo)(nil)
