package sale

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"clinicore/internal/core/apperror"
	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/internal/domain"
	"clinicore/internal/domain/audit"
	"clinicore/internal/domain/catalogs/franchise"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/domain/stockledger"
	"clinicore/pkg/numerator"
)

type passTx struct{}

func (passTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqRow struct{ v int64 }

func (r seqRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.v
	return nil
}

type fakeSeq struct{ vals map[string]int64 }

func (q *fakeSeq) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if q.vals == nil {
		q.vals = make(map[string]int64)
	}
	key, _ := args[0].(string)
	step := int64(1)
	if len(args) > 1 {
		if s, ok := args[1].(int64); ok {
			step = s
		}
	}
	q.vals[key] += step
	return seqRow{q.vals[key]}
}

type catalogStore[T entity.Validatable] struct {
	items map[id.ID]T
}

func newCatalogStore[T entity.Validatable]() *catalogStore[T] {
	return &catalogStore[T]{items: make(map[id.ID]T)}
}

func (s *catalogStore[T]) put(entityID id.ID, item T) { s.items[entityID] = item }

func (s *catalogStore[T]) Create(ctx context.Context, item T) error { return nil }

func (s *catalogStore[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	item, ok := s.items[entityID]
	if !ok {
		var zero T
		return zero, apperror.NewNotFound("entity", entityID.String())
	}
	return item, nil
}

func (s *catalogStore[T]) GetByCode(ctx context.Context, code string) (T, error) {
	var zero T
	return zero, apperror.NewNotFound("entity", code)
}

func (s *catalogStore[T]) Update(ctx context.Context, item T) error { return nil }

func (s *catalogStore[T]) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	return nil
}

func (s *catalogStore[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	return domain.ListResult[T]{}, nil
}

func (s *catalogStore[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	_, ok := s.items[entityID]
	return ok, nil
}

type medicineStore struct{ *catalogStore[*medicine.Medicine] }

func (s *medicineStore) GetMany(ctx context.Context, ids []id.ID) ([]*medicine.Medicine, error) {
	var out []*medicine.Medicine
	seen := make(map[id.ID]bool)
	for _, medID := range ids {
		if seen[medID] {
			continue
		}
		seen[medID] = true
		if m, ok := s.items[medID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *medicineStore) FindByName(ctx context.Context, name string) (*medicine.Medicine, error) {
	return nil, nil
}

type franchiseStore struct{ *catalogStore[*franchise.Franchise] }

type ledgerStore struct {
	entries    []entity.LedgerEntry
	lots       map[string][]stockledger.BatchLot
	aggregates map[string]types.Quantity
}

func newLedgerStore() *ledgerStore {
	return &ledgerStore{
		lots:       make(map[string][]stockledger.BatchLot),
		aggregates: make(map[string]types.Quantity),
	}
}

func stockKey(franchiseID, medicineID id.ID) string {
	return franchiseID.String() + "|" + medicineID.String()
}

func (r *ledgerStore) batchQty(franchiseID, medicineID id.ID, batchNumber string) types.Quantity {
	for _, lot := range r.lots[stockKey(franchiseID, medicineID)] {
		if lot.BatchNumber == batchNumber {
			return lot.Quantity
		}
	}
	return 0
}

func (r *ledgerStore) EligibleBatches(ctx context.Context, franchiseID, medicineID id.ID, asOf time.Time, horizonDays int) ([]stockledger.BatchLot, error) {
	return nil, nil
}

func (r *ledgerStore) InsertEntries(ctx context.Context, entries []entity.LedgerEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *ledgerStore) EntriesByTransaction(ctx context.Context, transactionID id.ID) ([]entity.LedgerEntry, error) {
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *ledgerStore) DeleteEntriesByTransaction(ctx context.Context, transactionID id.ID) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.TransactionID != transactionID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *ledgerStore) ReassignEntriesFranchise(ctx context.Context, transactionID, franchiseID id.ID) error {
	for i := range r.entries {
		if r.entries[i].TransactionID == transactionID {
			r.entries[i].FranchiseID = franchiseID
		}
	}
	return nil
}

func (r *ledgerStore) AddToBatchBalance(ctx context.Context, franchiseID, medicineID id.ID, batchNumber string, expiryDate time.Time, delta types.Quantity) error {
	key := stockKey(franchiseID, medicineID)
	for i, lot := range r.lots[key] {
		if lot.BatchNumber == batchNumber && lot.ExpiryDate.Equal(expiryDate) {
			next := lot.Quantity + delta
			if next < 0 {
				return apperror.NewConcurrentModification("batch balance", batchNumber)
			}
			r.lots[key][i].Quantity = next
			return nil
		}
	}
	if delta < 0 {
		return apperror.NewConcurrentModification("batch balance", batchNumber)
	}
	r.lots[key] = append(r.lots[key], stockledger.BatchLot{
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
		Quantity:    delta,
	})
	return nil
}

func (r *ledgerStore) AddToAggregateBalance(ctx context.Context, franchiseID, medicineID id.ID, delta types.Quantity) error {
	key := stockKey(franchiseID, medicineID)
	next := r.aggregates[key] + delta
	if next < 0 {
		return apperror.NewConcurrentModification("aggregate balance", medicineID.String())
	}
	r.aggregates[key] = next
	return nil
}

func (r *ledgerStore) AggregateBalanceForUpdate(ctx context.Context, franchiseID, medicineID id.ID) (types.Quantity, error) {
	return r.aggregates[stockKey(franchiseID, medicineID)], nil
}

func (r *ledgerStore) BatchBalances(ctx context.Context, franchiseID id.ID, medicineID *id.ID, excludeZero bool) ([]entity.BatchBalance, error) {
	return nil, nil
}

func (r *ledgerStore) AggregateBalances(ctx context.Context, franchiseID id.ID) ([]entity.AggregateBalance, error) {
	return nil, nil
}

func (r *ledgerStore) LedgerHistory(ctx context.Context, medicineID id.ID, filter stockledger.HistoryFilter) ([]entity.LedgerEntry, error) {
	return nil, nil
}

type txnStore struct {
	headers []entity.StockTransaction
}

func (s *txnStore) Create(ctx context.Context, header entity.StockTransaction) error {
	s.headers = append(s.headers, header)
	return nil
}

func (s *txnStore) GetBySource(ctx context.Context, txType entity.TransactionType, sourceID id.ID) (*entity.StockTransaction, error) {
	for i := range s.headers {
		if s.headers[i].Type == txType && s.headers[i].SourceID == sourceID {
			h := s.headers[i]
			return &h, nil
		}
	}
	return nil, nil
}

func (s *txnStore) Get(ctx context.Context, txnID id.ID) (*entity.StockTransaction, error) {
	for i := range s.headers {
		if s.headers[i].ID == txnID {
			h := s.headers[i]
			return &h, nil
		}
	}
	return nil, apperror.NewNotFound("stock transaction", txnID.String())
}

func (s *txnStore) UpdateFranchise(ctx context.Context, txnID, franchiseID id.ID) error {
	for i := range s.headers {
		if s.headers[i].ID == txnID {
			s.headers[i].FranchiseID = franchiseID
		}
	}
	return nil
}

func (s *txnStore) Delete(ctx context.Context, txnID id.ID) error {
	kept := s.headers[:0]
	for _, h := range s.headers {
		if h.ID != txnID {
			kept = append(kept, h)
		}
	}
	s.headers = kept
	return nil
}

type saleStore struct {
	sales []*Sale
}

func (s *saleStore) Create(ctx context.Context, sl *Sale) error {
	s.sales = append(s.sales, sl)
	return nil
}

func (s *saleStore) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	for _, sl := range s.sales {
		if sl.ID == saleID {
			return sl, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID.String())
}

func (s *saleStore) Update(ctx context.Context, sl *Sale) error {
	for i := range s.sales {
		if s.sales[i].ID == sl.ID {
			s.sales[i] = sl
		}
	}
	return nil
}

func (s *saleStore) Delete(ctx context.Context, saleID id.ID) error {
	kept := s.sales[:0]
	for _, sl := range s.sales {
		if sl.ID != saleID {
			kept = append(kept, sl)
		}
	}
	s.sales = kept
	return nil
}

func (s *saleStore) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return domain.ListResult[*Sale]{Items: s.sales, TotalCount: int64(len(s.sales))}, nil
}

// gateStub answers the transport questions without a transport service.
type gateStub struct {
	shipped      bool
	deletedSale  id.ID
	reassignedTo id.ID
}

func (g *gateStub) HasShipped(ctx context.Context, saleID id.ID) (bool, error) {
	return g.shipped, nil
}

func (g *gateStub) DeleteBySale(ctx context.Context, saleID id.ID) error {
	g.deletedSale = saleID
	return nil
}

func (g *gateStub) ReassignFranchise(ctx context.Context, saleID, franchiseID id.ID) error {
	g.reassignedTo = franchiseID
	return nil
}

type fixture struct {
	svc    *Service
	sales  *saleStore
	ledger *ledgerStore
	txns   *txnStore
	gate   *gateStub

	central     *franchise.Franchise
	north       *franchise.Franchise
	paracetamol *medicine.Medicine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mgr := passTx{}
	num := numerator.New(&fakeSeq{})

	meds := &medicineStore{newCatalogStore[*medicine.Medicine]()}
	paracetamol := medicine.NewMedicine("MED-00001", "Paracetamol 500mg", "Calpol", "tablet",
		types.MustMoney("1.20"), types.MustMoney("2.00"))
	meds.put(paracetamol.ID, paracetamol)

	franchises := &franchiseStore{newCatalogStore[*franchise.Franchise]()}
	central := franchise.NewFranchise("FR-00001", "Central Clinic", "12 Hospital Road")
	north := franchise.NewFranchise("FR-00002", "North Clinic", "4 Lake View")
	franchises.put(central.ID, central)
	franchises.put(north.ID, north)

	ledger := newLedgerStore()
	sales := &saleStore{}
	txns := &txnStore{}
	gate := &gateStub{}

	svc := NewService(
		sales,
		franchise.NewService(franchises, mgr, num),
		medicine.NewService(meds, mgr, num),
		stockledger.NewService(ledger),
		txns,
		gate,
		mgr,
		num,
		audit.Nop{},
	)

	return &fixture{
		svc:         svc,
		sales:       sales,
		ledger:      ledger,
		txns:        txns,
		gate:        gate,
		central:     central,
		north:       north,
		paracetamol: paracetamol,
	}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: id.New().String(),
		Email:  "admin@clinic.test",
		Role:   appctx.RoleAdmin,
	})
}

func day(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, n)
}

// postedSale creates a sale and simulates a delivered transport: a sale
// transaction header plus receipt entries in the franchise ledger.
func postedSale(t *testing.T, f *fixture) (*Sale, entity.StockTransaction) {
	t.Helper()
	ctx := adminCtx()

	expiry := day(200)
	sl, err := f.svc.Create(ctx, CreateRequest{
		FranchiseID: f.central.ID,
		Lines: []LineInput{
			{MedicineID: f.paracetamol.ID, Quantity: 10, BatchNumber: "B1", ExpiryDate: &expiry},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	header := entity.NewStockTransaction(entity.TransactionTypeSale, sl.ID, sl.FranchiseID, sl.Number)
	if err := f.txns.Create(ctx, header); err != nil {
		t.Fatalf("create header: %v", err)
	}
	err = stockledger.NewService(f.ledger).ApplyReceipt(ctx, header.ID, sl.FranchiseID, f.paracetamol.ID,
		[]stockledger.Assignment{{BatchNumber: "B1", ExpiryDate: expiry, Quantity: 10}},
		f.paracetamol.Rate)
	if err != nil {
		t.Fatalf("post receipt: %v", err)
	}
	return sl, header
}

func TestCreate_PricesLinesAtStandingRate(t *testing.T) {
	f := newFixture(t)

	sl, err := f.svc.Create(adminCtx(), CreateRequest{
		FranchiseID: f.central.ID,
		Lines:       []LineInput{{MedicineID: f.paracetamol.ID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if !strings.HasPrefix(sl.Number, "SL-") {
		t.Errorf("number %q lacks SL prefix", sl.Number)
	}
	if !types.MoneyEqual(sl.TotalAmount, types.MustMoney("12.00")) {
		t.Errorf("total: expected 12.00 at standing rate, got %s", sl.TotalAmount)
	}
	if len(f.ledger.entries) != 0 {
		t.Errorf("sale creation must not move stock, got %d entries", len(f.ledger.entries))
	}
}

func TestCreate_BatchInsideHorizonRejected(t *testing.T) {
	f := newFixture(t)

	expiry := day(30)
	_, err := f.svc.Create(adminCtx(), CreateRequest{
		FranchiseID: f.central.ID,
		Lines: []LineInput{
			{MedicineID: f.paracetamol.ID, Quantity: 5, BatchNumber: "B1", ExpiryDate: &expiry},
		},
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error for near-expiry batch, got %v", err)
	}
}

func TestCreate_InactiveFranchiseRejected(t *testing.T) {
	f := newFixture(t)
	f.central.Active = false

	_, err := f.svc.Create(adminCtx(), CreateRequest{
		FranchiseID: f.central.ID,
		Lines:       []LineInput{{MedicineID: f.paracetamol.ID, Quantity: 5}},
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_LineEditAfterDispatchConflicts(t *testing.T) {
	f := newFixture(t)
	sl, _ := postedSale(t, f)
	f.gate.shipped = true

	_, err := f.svc.Update(adminCtx(), sl.ID, UpdateRequest{
		Lines: []LineInput{{MedicineID: f.paracetamol.ID, Quantity: 99}},
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestUpdate_CommentEditAfterDispatchAllowed(t *testing.T) {
	f := newFixture(t)
	sl, _ := postedSale(t, f)
	f.gate.shipped = true

	comment := "rescheduled pickup"
	updated, err := f.svc.Update(adminCtx(), sl.ID, UpdateRequest{Comment: &comment})
	if err != nil {
		t.Fatalf("comment-only update: %v", err)
	}
	if updated.Comment != comment {
		t.Errorf("comment %q, expected %q", updated.Comment, comment)
	}
}

func TestUpdate_FranchiseChangeRepointsPostedStock(t *testing.T) {
	f := newFixture(t)
	sl, header := postedSale(t, f)
	f.gate.shipped = true

	target := f.north.ID
	updated, err := f.svc.Update(adminCtx(), sl.ID, UpdateRequest{FranchiseID: &target})
	if err != nil {
		t.Fatalf("franchise change: %v", err)
	}
	if updated.FranchiseID != f.north.ID {
		t.Errorf("sale franchise %s, expected %s", updated.FranchiseID, f.north.ID)
	}

	if got := f.ledger.aggregates[stockKey(f.central.ID, f.paracetamol.ID)]; got != 0 {
		t.Errorf("old franchise aggregate: expected 0, got %d", got)
	}
	if got := f.ledger.aggregates[stockKey(f.north.ID, f.paracetamol.ID)]; got != 10 {
		t.Errorf("new franchise aggregate: expected 10, got %d", got)
	}
	if got := f.ledger.batchQty(f.north.ID, f.paracetamol.ID, "B1"); got != 10 {
		t.Errorf("new franchise B1: expected 10, got %d", got)
	}

	moved, _ := f.txns.Get(context.Background(), header.ID)
	if moved.FranchiseID != f.north.ID {
		t.Errorf("header franchise %s, expected %s", moved.FranchiseID, f.north.ID)
	}
	if f.gate.reassignedTo != f.north.ID {
		t.Errorf("transports not re-pointed, got %s", f.gate.reassignedTo)
	}
}

func TestDelete_ReversesPostedStock(t *testing.T) {
	f := newFixture(t)
	sl, header := postedSale(t, f)

	if err := f.svc.Delete(adminCtx(), sl.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}

	if len(f.sales.sales) != 0 {
		t.Errorf("sale must be removed, %d left", len(f.sales.sales))
	}
	if got := f.ledger.aggregates[stockKey(f.central.ID, f.paracetamol.ID)]; got != 0 {
		t.Errorf("aggregate after reversal: expected 0, got %d", got)
	}
	entries, _ := f.ledger.EntriesByTransaction(context.Background(), header.ID)
	if len(entries) != 0 {
		t.Errorf("ledger entries must be deleted, got %d", len(entries))
	}
	if _, err := f.txns.Get(context.Background(), header.ID); !apperror.IsNotFound(err) {
		t.Errorf("header must be deleted, got %v", err)
	}
	if f.gate.deletedSale != sl.ID {
		t.Errorf("transports not deleted for sale %s", sl.ID)
	}
}

func TestDelete_ConsumedStockConflicts(t *testing.T) {
	f := newFixture(t)
	sl, _ := postedSale(t, f)

	// franchise already dispensed 8 of the 10 received units
	key := stockKey(f.central.ID, f.paracetamol.ID)
	f.ledger.lots[key][0].Quantity = 2
	f.ledger.aggregates[key] = 2

	err := f.svc.Delete(adminCtx(), sl.ID)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeConcurrentModification {
		t.Fatalf("expected CONCURRENT_MODIFICATION, got %v", err)
	}
	if len(f.sales.sales) != 1 {
		t.Errorf("sale must survive a failed reversal, got %d", len(f.sales.sales))
	}
}
