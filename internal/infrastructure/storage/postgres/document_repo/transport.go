package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
	"clinicore/internal/domain/documents/sale"
	"clinicore/internal/domain/documents/transport"
	"clinicore/internal/infrastructure/storage/postgres"
)

const (
	transportsTable       = "doc_transports"
	transportDetailsTable = "doc_transport_details"
)

// TransportRepo implements transport.Repository and, through the extra
// sale-scoped queries, sale.TransportGate.
type TransportRepo struct {
	*BaseDocumentRepo[*transport.Transport]
}

// NewTransportRepo creates a new transport repository.
func NewTransportRepo(txManager *postgres.TxManager) *TransportRepo {
	return &TransportRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			transportsTable,
			postgres.ExtractDBColumns[transport.Transport](),
			func() *transport.Transport { return &transport.Transport{} },
		),
	}
}

// Create inserts the header and details.
func (r *TransportRepo) Create(ctx context.Context, t *transport.Transport) error {
	if err := r.CreateHeader(ctx, t); err != nil {
		return err
	}
	return r.insertDetails(ctx, t.ID, t.Details)
}

func (r *TransportRepo) insertDetails(ctx context.Context, transportID id.ID, details []transport.Detail) error {
	if len(details) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(transportDetailsTable).
		Columns("line_id", "document_id", "line_no", "medicine_id", "quantity", "batch_number", "expiry_date")

	for _, d := range details {
		q = q.Values(d.LineID, transportID, d.LineNo, d.MedicineID, d.Quantity, d.BatchNumber, d.ExpiryDate)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert details: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert details: %w", err)
	}

	return nil
}

func (r *TransportRepo) loadDetails(ctx context.Context, t *transport.Transport) error {
	q := r.Builder().
		Select("line_id", "line_no", "medicine_id", "quantity", "batch_number", "expiry_date").
		From(transportDetailsTable).
		Where(squirrel.Eq{"document_id": t.ID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.querier(ctx), &t.Details, sql, args...); err != nil {
		return fmt.Errorf("get details: %w", err)
	}

	return nil
}

// Get loads a transport with its details.
func (r *TransportRepo) Get(ctx context.Context, transportID id.ID) (*transport.Transport, error) {
	t, err := r.GetHeader(ctx, transportID)
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetForUpdate loads a transport with a row lock.
func (r *TransportRepo) GetForUpdate(ctx context.Context, transportID id.ID) (*transport.Transport, error) {
	t, err := r.GetHeaderForUpdate(ctx, transportID)
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update rewrites the header and replaces the details.
func (r *TransportRepo) Update(ctx context.Context, t *transport.Transport) error {
	if err := r.UpdateHeader(ctx, t); err != nil {
		return err
	}
	if err := r.deleteLines(ctx, transportDetailsTable, t.ID); err != nil {
		return err
	}
	return r.insertDetails(ctx, t.ID, t.Details)
}

// ListBySale returns all transports for one sale, details included.
func (r *TransportRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*transport.Transport, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*transport.Transport
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list by sale: %w", err)
	}

	for _, t := range items {
		if err := r.loadDetails(ctx, t); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// DeleteBySale removes a sale's transports and their details.
func (r *TransportRepo) DeleteBySale(ctx context.Context, saleID id.ID) error {
	querier := r.querier(ctx)

	detailsSQL := `
		DELETE FROM doc_transport_details
		WHERE document_id IN (SELECT id FROM doc_transports WHERE sale_id = $1)
	`
	if _, err := querier.Exec(ctx, detailsSQL, saleID); err != nil {
		return fmt.Errorf("delete transport details: %w", err)
	}

	if _, err := querier.Exec(ctx, "DELETE FROM doc_transports WHERE sale_id = $1", saleID); err != nil {
		return fmt.Errorf("delete transports: %w", err)
	}

	return nil
}

// ReassignFranchise re-points a sale's transports to a new franchise.
func (r *TransportRepo) ReassignFranchise(ctx context.Context, saleID, franchiseID id.ID) error {
	sql := "UPDATE doc_transports SET franchise_id = $2, updated_at = NOW() WHERE sale_id = $1"
	if _, err := r.querier(ctx).Exec(ctx, sql, saleID, franchiseID); err != nil {
		return fmt.Errorf("reassign transports: %w", err)
	}
	return nil
}

// HasShipped reports whether any transport for the sale left PENDING.
func (r *TransportRepo) HasShipped(ctx context.Context, saleID id.ID) (bool, error) {
	sql := `SELECT 1 FROM doc_transports WHERE sale_id = $1 AND status <> $2 LIMIT 1`

	var one int
	err := r.querier(ctx).QueryRow(ctx, sql, saleID, transport.StatusPending).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check shipments: %w", err)
	}

	return true, nil
}

// List returns transport headers (no details).
func (r *TransportRepo) List(ctx context.Context, filter transport.ListFilter) (domain.ListResult[*transport.Transport], error) {
	result := domain.ListResult[*transport.Transport]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if filter.FranchiseID != nil {
		q = q.Where(squirrel.Eq{"franchise_id": *filter.FranchiseID})
	}
	if filter.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *filter.SaleID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
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

var (
	_ transport.Repository = (*TransportRepo)(nil)
	_ sale.TransportGate   = (*TransportRepo)(nil)
)
