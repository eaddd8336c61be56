package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
	"clinicore/internal/domain/documents/medicinebill"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	medicineBillsTable     = "doc_medicine_bills"
	medicineBillLinesTable = "doc_medicine_bill_lines"
)

// MedicineBillRepo implements medicinebill.Repository.
type MedicineBillRepo struct {
	*BaseDocumentRepo[*medicinebill.MedicineBill]
}

// NewMedicineBillRepo creates a new medicine bill repository.
func NewMedicineBillRepo(txManager *postgres.TxManager) *MedicineBillRepo {
	return &MedicineBillRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			medicineBillsTable,
			postgres.ExtractDBColumns[medicinebill.MedicineBill](),
			func() *medicinebill.MedicineBill { return &medicinebill.MedicineBill{} },
		),
	}
}

// Create inserts the header and lines.
func (r *MedicineBillRepo) Create(ctx context.Context, bill *medicinebill.MedicineBill) error {
	if err := r.CreateHeader(ctx, bill); err != nil {
		return err
	}
	return r.insertLines(ctx, bill.ID, bill.Lines)
}

func (r *MedicineBillRepo) insertLines(ctx context.Context, billID id.ID, lines []medicinebill.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(medicineBillLinesTable).
		Columns("line_id", "document_id", "line_no", "medicine_id", "quantity", "mrp", "amount")

	for _, line := range lines {
		q = q.Values(line.LineID, billID, line.LineNo, line.MedicineID, line.Quantity, line.MRP, line.Amount)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// Get loads a bill with its lines.
func (r *MedicineBillRepo) Get(ctx context.Context, billID id.ID) (*medicinebill.MedicineBill, error) {
	bill, err := r.GetHeader(ctx, billID)
	if err != nil {
		return nil, err
	}

	q := r.Builder().
		Select("line_id", "line_no", "medicine_id", "quantity", "mrp", "amount").
		From(medicineBillLinesTable).
		Where(squirrel.Eq{"document_id": billID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.querier(ctx), &bill.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return bill, nil
}

// List returns bill headers (no lines).
func (r *MedicineBillRepo) List(ctx context.Context, filter medicinebill.ListFilter) (domain.ListResult[*medicinebill.MedicineBill], error) {
	result := domain.ListResult[*medicinebill.MedicineBill]{
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

var _ medicinebill.Repository = (*MedicineBillRepo)(nil)
