package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
	"clinicore/internal/domain/documents/consultation"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	consultationsTable         = "doc_consultations"
	consultationServicesTable  = "doc_consultation_services"
	consultationMedicinesTable = "doc_consultation_medicines"
)

// ConsultationRepo implements consultation.Repository.
type ConsultationRepo struct {
	*BaseDocumentRepo[*consultation.Consultation]
}

// NewConsultationRepo creates a new consultation repository.
func NewConsultationRepo(txManager *postgres.TxManager) *ConsultationRepo {
	return &ConsultationRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			consultationsTable,
			postgres.ExtractDBColumns[consultation.Consultation](),
			func() *consultation.Consultation { return &consultation.Consultation{} },
		),
	}
}

// Create inserts the header and both table parts.
func (r *ConsultationRepo) Create(ctx context.Context, c *consultation.Consultation) error {
	if err := r.CreateHeader(ctx, c); err != nil {
		return err
	}

	if len(c.Services) > 0 {
		q := r.Builder().
			Insert(consultationServicesTable).
			Columns("line_id", "document_id", "line_no", "name", "fee")
		for _, line := range c.Services {
			q = q.Values(line.LineID, c.ID, line.LineNo, line.Name, line.Fee)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert services: %w", err)
		}
		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert services: %w", err)
		}
	}

	if len(c.Medicines) > 0 {
		q := r.Builder().
			Insert(consultationMedicinesTable).
			Columns("line_id", "document_id", "line_no", "medicine_id", "quantity", "mrp", "amount")
		for _, line := range c.Medicines {
			q = q.Values(line.LineID, c.ID, line.LineNo, line.MedicineID, line.Quantity, line.MRP, line.Amount)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert medicines: %w", err)
		}
		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert medicines: %w", err)
		}
	}

	return nil
}

// Get loads a consultation with its lines.
func (r *ConsultationRepo) Get(ctx context.Context, consultationID id.ID) (*consultation.Consultation, error) {
	c, err := r.GetHeader(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	servicesQ := r.Builder().
		Select("line_id", "line_no", "name", "fee").
		From(consultationServicesTable).
		Where(squirrel.Eq{"document_id": consultationID}).
		OrderBy("line_no")

	sql, args, err := servicesQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &c.Services, sql, args...); err != nil {
		return nil, fmt.Errorf("get services: %w", err)
	}

	medicinesQ := r.Builder().
		Select("line_id", "line_no", "medicine_id", "quantity", "mrp", "amount").
		From(consultationMedicinesTable).
		Where(squirrel.Eq{"document_id": consultationID}).
		OrderBy("line_no")

	sql, args, err = medicinesQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &c.Medicines, sql, args...); err != nil {
		return nil, fmt.Errorf("get medicines: %w", err)
	}

	return c, nil
}

// List returns consultation headers (no lines).
func (r *ConsultationRepo) List(ctx context.Context, filter consultation.ListFilter) (domain.ListResult[*consultation.Consultation], error) {
	result := domain.ListResult[*consultation.Consultation]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if filter.FranchiseID != nil {
		q = q.Where(squirrel.Eq{"franchise_id": *filter.FranchiseID})
	}
	if filter.PatientID != nil {
		q = q.Where(squirrel.Eq{"patient_id": *filter.PatientID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q, err := r.countAndPage(ctx, q, "date DESC", filter.Limit, filter.Offset, &result.TotalCount)
	if err != nil {
		return result, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}

var _ consultation.Repository = (*ConsultationRepo)(nil)
