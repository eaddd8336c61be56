package transport

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
	"clinicore/internal/domain/adminstock"
	"clinicore/internal/domain/audit"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/domain/documents/sale"
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

// poolStore is an in-memory adminstock.Repository.
type poolStore struct {
	balances map[id.ID]types.Quantity
	batches  map[id.ID][]adminstock.BatchRecord
}

func newPoolStore() *poolStore {
	return &poolStore{
		balances: make(map[id.ID]types.Quantity),
		batches:  make(map[id.ID][]adminstock.BatchRecord),
	}
}

// stock seeds a pool batch and keeps the balance in sync.
func (s *poolStore) stock(medicineID id.ID, batchNumber string, expiry time.Time, qty types.Quantity) {
	s.balances[medicineID] += qty
	s.batches[medicineID] = append(s.batches[medicineID], adminstock.BatchRecord{
		MedicineID:  medicineID,
		BatchNumber: batchNumber,
		ExpiryDate:  expiry,
		Quantity:    qty,
		CreatedAt:   time.Now().UTC(),
	})
}

func (s *poolStore) batchQty(medicineID id.ID, batchNumber string) types.Quantity {
	for _, rec := range s.batches[medicineID] {
		if rec.BatchNumber == batchNumber {
			return rec.Quantity
		}
	}
	return 0
}

func (s *poolStore) Increment(ctx context.Context, medicineID id.ID, qty types.Quantity) error {
	s.balances[medicineID] += qty
	return nil
}

func (s *poolStore) DecrementIfAvailable(ctx context.Context, medicineID id.ID, qty types.Quantity) (bool, error) {
	if s.balances[medicineID] < qty {
		return false, nil
	}
	s.balances[medicineID] -= qty
	return true, nil
}

func (s *poolStore) Balance(ctx context.Context, medicineID id.ID) (types.Quantity, error) {
	return s.balances[medicineID], nil
}

func (s *poolStore) List(ctx context.Context, excludeZero bool) ([]entity.AdminStockBalance, error) {
	return nil, nil
}

func (s *poolStore) UpsertBatchRecord(ctx context.Context, rec adminstock.BatchRecord) error {
	for i, existing := range s.batches[rec.MedicineID] {
		if existing.BatchNumber == rec.BatchNumber && existing.ExpiryDate.Equal(rec.ExpiryDate) {
			s.batches[rec.MedicineID][i].Quantity += rec.Quantity
			return nil
		}
	}
	s.batches[rec.MedicineID] = append(s.batches[rec.MedicineID], rec)
	return nil
}

func (s *poolStore) BatchRecords(ctx context.Context, medicineID id.ID) ([]adminstock.BatchRecord, error) {
	var out []adminstock.BatchRecord
	for _, rec := range s.batches[medicineID] {
		if rec.Quantity > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *poolStore) ConsumeBatchRecord(ctx context.Context, medicineID id.ID, batchNumber string, expiryDate time.Time, qty types.Quantity) error {
	for i, rec := range s.batches[medicineID] {
		if rec.BatchNumber == batchNumber && rec.ExpiryDate.Equal(expiryDate) {
			next := rec.Quantity - qty
			if next < 0 {
				next = 0
			}
			s.batches[medicineID][i].Quantity = next
		}
	}
	return nil
}

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
	sales []*sale.Sale
}

func (s *saleStore) Create(ctx context.Context, sl *sale.Sale) error {
	s.sales = append(s.sales, sl)
	return nil
}

func (s *saleStore) Get(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	for _, sl := range s.sales {
		if sl.ID == saleID {
			return sl, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID.String())
}

func (s *saleStore) Update(ctx context.Context, sl *sale.Sale) error { return nil }

func (s *saleStore) Delete(ctx context.Context, saleID id.ID) error { return nil }

func (s *saleStore) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return domain.ListResult[*sale.Sale]{}, nil
}

type transportStore struct {
	transports []*Transport
}

func (s *transportStore) Create(ctx context.Context, t *Transport) error {
	s.transports = append(s.transports, t)
	return nil
}

func (s *transportStore) Get(ctx context.Context, transportID id.ID) (*Transport, error) {
	for _, t := range s.transports {
		if t.ID == transportID {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transport", transportID.String())
}

func (s *transportStore) GetForUpdate(ctx context.Context, transportID id.ID) (*Transport, error) {
	return s.Get(ctx, transportID)
}

func (s *transportStore) Update(ctx context.Context, t *Transport) error {
	for i := range s.transports {
		if s.transports[i].ID == t.ID {
			s.transports[i] = t
		}
	}
	return nil
}

func (s *transportStore) ListBySale(ctx context.Context, saleID id.ID) ([]*Transport, error) {
	var out []*Transport
	for _, t := range s.transports {
		if t.SaleID == saleID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *transportStore) DeleteBySale(ctx context.Context, saleID id.ID) error {
	kept := s.transports[:0]
	for _, t := range s.transports {
		if t.SaleID != saleID {
			kept = append(kept, t)
		}
	}
	s.transports = kept
	return nil
}

func (s *transportStore) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transport], error) {
	return domain.ListResult[*Transport]{Items: s.transports, TotalCount: int64(len(s.transports))}, nil
}

type fixture struct {
	svc        *Service
	transports *transportStore
	sales      *saleStore
	pool       *poolStore
	ledger     *ledgerStore
	txns       *txnStore

	franchiseID id.ID
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

	medicines := medicine.NewService(meds, mgr, num)

	pool := newPoolStore()
	ledger := newLedgerStore()
	transports := &transportStore{}
	sales := &saleStore{}
	txns := &txnStore{}

	svc := NewService(
		transports,
		sales,
		medicines,
		adminstock.NewService(pool, medicines),
		stockledger.NewService(ledger),
		txns,
		mgr,
		num,
		audit.Nop{},
	)

	return &fixture{
		svc:         svc,
		transports:  transports,
		sales:       sales,
		pool:        pool,
		ledger:      ledger,
		txns:        txns,
		franchiseID: id.New(),
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

func franchiseCtx(franchiseID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Email:       "clerk@clinic.test",
		Role:        appctx.RoleFranchise,
		FranchiseID: franchiseID,
	})
}

func day(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, n)
}

// storedSale puts a sale in the fake repository. A non-empty batch pins the
// lot the franchise receives; an empty one makes delivery split FEFO.
func storedSale(f *fixture, qty types.Quantity, batchNumber string, expiry *time.Time) *sale.Sale {
	sl := sale.NewSale(f.franchiseID)
	sl.Number = "SL-2026-00001"
	sl.AddLine(f.paracetamol.ID, qty, f.paracetamol.Rate, batchNumber, expiry)
	sl.RecalculateTotal()
	f.sales.sales = append(f.sales.sales, sl)
	return sl
}

// dispatched creates a transport for the sale and moves it to DISPATCHED.
func dispatched(t *testing.T, f *fixture, sl *sale.Sale) *Transport {
	t.Helper()
	ctx := adminCtx()
	tr, err := f.svc.Create(ctx, CreateRequest{SaleID: sl.ID})
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}
	tr, err = f.svc.AdminUpdate(ctx, tr.ID, AdminUpdateRequest{Dispatch: true})
	if err != nil {
		t.Fatalf("dispatch transport: %v", err)
	}
	return tr
}

func TestCreate_DetailMedicineMustBeOnSale(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)

	_, err := f.svc.Create(adminCtx(), CreateRequest{
		SaleID: sl.ID,
		Details: []DetailInput{
			{MedicineID: id.New(), Quantity: 1, BatchNumber: "X1", ExpiryDate: day(200)},
		},
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_DetailQuantityCappedBySale(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)

	_, err := f.svc.Create(adminCtx(), CreateRequest{
		SaleID: sl.ID,
		Details: []DetailInput{
			{MedicineID: f.paracetamol.ID, Quantity: 20, BatchNumber: "B1", ExpiryDate: day(200)},
		},
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_StartsPendingWithNumber(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)

	tr, err := f.svc.Create(adminCtx(), CreateRequest{SaleID: sl.ID, VehicleNo: "KA-01-1234"})
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}
	if tr.Status != StatusPending {
		t.Errorf("status %s, expected PENDING", tr.Status)
	}
	if !strings.HasPrefix(tr.Number, "TR-") {
		t.Errorf("number %q lacks TR prefix", tr.Number)
	}
}

func TestAdminUpdate_DispatchMovesForwardOnce(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)

	tr := dispatched(t, f, sl)
	if tr.Status != StatusDispatched {
		t.Fatalf("status %s, expected DISPATCHED", tr.Status)
	}
	if tr.DispatchedAt == nil {
		t.Error("DispatchedAt must be set")
	}

	_, err := f.svc.AdminUpdate(adminCtx(), tr.ID, AdminUpdateRequest{Dispatch: true})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT on repeated dispatch, got %v", err)
	}
}

func TestAdminUpdate_EditAfterDispatchRejected(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)
	tr := dispatched(t, f, sl)

	vehicle := "KA-02-9999"
	_, err := f.svc.AdminUpdate(adminCtx(), tr.ID, AdminUpdateRequest{VehicleNo: &vehicle})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestDeliver_PostsStockExactlyOnce(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)
	tr := dispatched(t, f, sl)

	f.pool.stock(f.paracetamol.ID, "B1", expiry, 15)

	ctx := franchiseCtx(f.franchiseID)
	delivered, err := f.svc.Deliver(ctx, tr.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if delivered.Status != StatusDelivered {
		t.Errorf("status %s, expected DELIVERED", delivered.Status)
	}
	if delivered.StockPostedAt == nil {
		t.Error("StockPostedAt must be set")
	}
	if got := f.pool.balances[f.paracetamol.ID]; got != 5 {
		t.Errorf("pool balance: expected 5, got %d", got)
	}
	if got := f.ledger.batchQty(f.franchiseID, f.paracetamol.ID, "B1"); got != 10 {
		t.Errorf("franchise B1: expected 10, got %d", got)
	}
	if got := f.ledger.aggregates[stockKey(f.franchiseID, f.paracetamol.ID)]; got != 10 {
		t.Errorf("franchise aggregate: expected 10, got %d", got)
	}
	if len(f.txns.headers) != 1 || f.txns.headers[0].Type != entity.TransactionTypeSale {
		t.Fatalf("expected one sale stock transaction, got %+v", f.txns.headers)
	}
	entriesBefore := len(f.ledger.entries)

	// second delivery is a no-op, not an error
	again, err := f.svc.Deliver(ctx, tr.ID)
	if err != nil {
		t.Fatalf("repeat deliver: %v", err)
	}
	if again.Status != StatusDelivered {
		t.Errorf("repeat status %s, expected DELIVERED", again.Status)
	}
	if got := f.pool.balances[f.paracetamol.ID]; got != 5 {
		t.Errorf("pool balance changed on repeat delivery: %d", got)
	}
	if len(f.ledger.entries) != entriesBefore {
		t.Errorf("ledger entries changed on repeat delivery: %d -> %d", entriesBefore, len(f.ledger.entries))
	}
}

func TestDeliver_PendingTransportRejected(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)

	tr, err := f.svc.Create(adminCtx(), CreateRequest{SaleID: sl.ID})
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}

	_, err = f.svc.Deliver(franchiseCtx(f.franchiseID), tr.ID)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestDeliver_OtherFranchiseSeesNotFound(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)
	tr := dispatched(t, f, sl)

	_, err := f.svc.Deliver(franchiseCtx(id.New()), tr.ID)
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND for foreign franchise, got %v", err)
	}
}

func TestDeliver_PoolShortfallAbortsPosting(t *testing.T) {
	f := newFixture(t)
	expiry := day(200)
	sl := storedSale(f, 10, "B1", &expiry)
	tr := dispatched(t, f, sl)

	f.pool.stock(f.paracetamol.ID, "B1", expiry, 4)

	_, err := f.svc.Deliver(franchiseCtx(f.franchiseID), tr.ID)
	if !apperror.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient admin stock, got %v", err)
	}

	stored, _ := f.transports.Get(context.Background(), tr.ID)
	if stored.Status != StatusDispatched {
		t.Errorf("status %s, expected transport to stay DISPATCHED", stored.Status)
	}
	if stored.StockPostedAt != nil {
		t.Error("StockPostedAt must stay unset")
	}
	if got := f.pool.balances[f.paracetamol.ID]; got != 4 {
		t.Errorf("pool balance: expected 4, got %d", got)
	}
	if got := f.ledger.aggregates[stockKey(f.franchiseID, f.paracetamol.ID)]; got != 0 {
		t.Errorf("franchise aggregate must stay 0, got %d", got)
	}
	if len(f.ledger.entries) != 0 {
		t.Errorf("no ledger entries must be written, got %d", len(f.ledger.entries))
	}
}

func TestDeliver_SplitsFEFOAcrossPoolBatches(t *testing.T) {
	f := newFixture(t)
	sl := storedSale(f, 8, "", nil) // no pinned batch
	tr := dispatched(t, f, sl)

	f.pool.stock(f.paracetamol.ID, "B1", day(120), 5)
	f.pool.stock(f.paracetamol.ID, "B2", day(250), 10)

	_, err := f.svc.Deliver(franchiseCtx(f.franchiseID), tr.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if got := f.ledger.batchQty(f.franchiseID, f.paracetamol.ID, "B1"); got != 5 {
		t.Errorf("franchise B1: expected 5, got %d", got)
	}
	if got := f.ledger.batchQty(f.franchiseID, f.paracetamol.ID, "B2"); got != 3 {
		t.Errorf("franchise B2: expected 3, got %d", got)
	}
	if got := f.pool.balances[f.paracetamol.ID]; got != 7 {
		t.Errorf("pool balance: expected 7, got %d", got)
	}
	if got := f.pool.batchQty(f.paracetamol.ID, "B1"); got != 0 {
		t.Errorf("pool B1 record: expected 0, got %d", got)
	}
	if got := f.pool.batchQty(f.paracetamol.ID, "B2"); got != 7 {
		t.Errorf("pool B2 record: expected 7, got %d", got)
	}
}
