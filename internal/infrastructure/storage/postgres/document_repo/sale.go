package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
	"clinicore/internal/domain/documents/sale"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesTable,
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
	}
}

// Create inserts the header and lines.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	if err := r.CreateHeader(ctx, s); err != nil {
		return err
	}
	return r.insertLines(ctx, s.ID, s.Lines)
}

func (r *SaleRepo) insertLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(saleLinesTable).
		Columns("line_id", "document_id", "line_no", "medicine_id", "quantity", "rate", "amount", "batch_number", "expiry_date")

	for _, line := range lines {
		q = q.Values(line.LineID, saleID, line.LineNo, line.MedicineID, line.Quantity, line.Rate, line.Amount, line.BatchNumber, line.ExpiryDate)
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

// Get loads a sale with its lines.
func (r *SaleRepo) Get(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	s, err := r.GetHeader(ctx, saleID)
	if err != nil {
		return nil, err
	}

	q := r.Builder().
		Select("line_id", "line_no", "medicine_id", "quantity", "rate", "amount", "batch_number", "expiry_date").
		From(saleLinesTable).
		Where(squirrel.Eq{"document_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.querier(ctx), &s.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return s, nil
}

// Update rewrites the header and replaces the lines.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	if err := r.UpdateHeader(ctx, s); err != nil {
		return err
	}
	if err := r.deleteLines(ctx, saleLinesTable, s.ID); err != nil {
		return err
	}
	return r.insertLines(ctx, s.ID, s.Lines)
}

// Delete removes the sale and its lines.
func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	if err := r.deleteLines(ctx, saleLinesTable, saleID); err != nil {
		return err
	}
	return r.DeleteHeader(ctx, saleID)
}

// List returns sale headers (no lines).
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if filter.FranchiseID != nil {
		q = q.Where(squirrel.Eq{"franchise_id": *filter.FranchiseID})
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

var _ sale.Repository = (*SaleRepo)(nil)
