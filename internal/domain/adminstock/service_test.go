package adminstock

import (
	"context"
	"testing"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/internal/domain/stockledger"
)

type fakeRepo struct {
	balances map[id.ID]types.Quantity
	records  []BatchRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: make(map[id.ID]types.Quantity)}
}

func (r *fakeRepo) Increment(ctx context.Context, medicineID id.ID, qty types.Quantity) error {
	r.balances[medicineID] += qty
	return nil
}

func (r *fakeRepo) DecrementIfAvailable(ctx context.Context, medicineID id.ID, qty types.Quantity) (bool, error) {
	if r.balances[medicineID] < qty {
		return false, nil
	}
	r.balances[medicineID] -= qty
	return true, nil
}

func (r *fakeRepo) Balance(ctx context.Context, medicineID id.ID) (types.Quantity, error) {
	return r.balances[medicineID], nil
}

func (r *fakeRepo) List(ctx context.Context, excludeZero bool) ([]entity.AdminStockBalance, error) {
	return nil, nil
}

func (r *fakeRepo) UpsertBatchRecord(ctx context.Context, rec BatchRecord) error {
	for i := range r.records {
		if r.records[i].MedicineID == rec.MedicineID &&
			r.records[i].BatchNumber == rec.BatchNumber &&
			r.records[i].ExpiryDate.Equal(rec.ExpiryDate) {
			r.records[i].Quantity += rec.Quantity
			return nil
		}
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRepo) BatchRecords(ctx context.Context, medicineID id.ID) ([]BatchRecord, error) {
	var out []BatchRecord
	for _, rec := range r.records {
		if rec.MedicineID == medicineID && rec.Quantity > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) ConsumeBatchRecord(ctx context.Context, medicineID id.ID, batchNumber string, expiryDate time.Time, qty types.Quantity) error {
	for i := range r.records {
		if r.records[i].MedicineID == medicineID &&
			r.records[i].BatchNumber == batchNumber &&
			r.records[i].ExpiryDate.Equal(expiryDate) {
			r.records[i].Quantity -= qty
			if r.records[i].Quantity < 0 {
				r.records[i].Quantity = 0
			}
		}
	}
	return nil
}

type fakeNamer map[id.ID]string

func (n fakeNamer) MedicineName(ctx context.Context, medicineID id.ID) (string, error) {
	return n[medicineID], nil
}

func farExpiry() time.Time {
	return time.Now().UTC().AddDate(1, 0, 0)
}

func TestRefill_AddsBalanceAndBatchRecord(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	medID := id.New()
	err := svc.Refill(ctx, []RefillItem{
		{MedicineID: medID, Quantity: 50, BatchNumber: "RX-1", ExpiryDate: farExpiry()},
		{MedicineID: medID, Quantity: 30, BatchNumber: "RX-2", ExpiryDate: farExpiry()},
	})
	if err != nil {
		t.Fatalf("refill: %v", err)
	}

	if repo.balances[medID] != 80 {
		t.Errorf("expected pool 80, got %d", repo.balances[medID])
	}
	records, _ := repo.BatchRecords(ctx, medID)
	if len(records) != 2 {
		t.Errorf("expected 2 batch records, got %d", len(records))
	}
}

func TestRefill_PlainItemOnlyTopsUpPool(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	medID := id.New()
	err := svc.Refill(ctx, []RefillItem{
		{MedicineID: medID, Quantity: 25},
	})
	if err != nil {
		t.Fatalf("plain refill without batch metadata should pass: %v", err)
	}

	if repo.balances[medID] != 25 {
		t.Errorf("expected pool 25, got %d", repo.balances[medID])
	}
	records, _ := repo.BatchRecords(ctx, medID)
	if len(records) != 0 {
		t.Errorf("expected no batch records, got %d", len(records))
	}
}

func TestRefill_SameBatchDifferentExpiryKeepsSeparateRecords(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	medID := id.New()
	near := time.Now().UTC().AddDate(0, 6, 0)
	far := time.Now().UTC().AddDate(1, 6, 0)
	err := svc.Refill(ctx, []RefillItem{
		{MedicineID: medID, Quantity: 10, BatchNumber: "RX-1", ExpiryDate: near},
		{MedicineID: medID, Quantity: 15, BatchNumber: "RX-1", ExpiryDate: far},
	})
	if err != nil {
		t.Fatalf("refill: %v", err)
	}

	records, _ := repo.BatchRecords(ctx, medID)
	if len(records) != 2 {
		t.Fatalf("expected 2 records for the re-used batch number, got %d", len(records))
	}

	// consuming one expiry must not touch the other
	if err := svc.ConsumeBatches(ctx, medID, []stockledger.Assignment{
		{BatchNumber: "RX-1", ExpiryDate: near, Quantity: 10},
	}); err != nil {
		t.Fatalf("consume: %v", err)
	}
	records, _ = repo.BatchRecords(ctx, medID)
	if len(records) != 1 || !records[0].ExpiryDate.Equal(far) || records[0].Quantity != 15 {
		t.Fatalf("expected only the far-dated record with 15 left, got %+v", records)
	}
}

func TestRefill_RejectsShortExpiry(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	err := svc.Refill(context.Background(), []RefillItem{
		{
			MedicineID:  id.New(),
			Quantity:    10,
			BatchNumber: "SHORT",
			ExpiryDate:  time.Now().UTC().AddDate(0, 0, 30),
		},
	})
	if err == nil {
		t.Fatal("expected validation error for short-dated batch")
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Code != apperror.CodeValidation {
		t.Errorf("expected validation code, got %s", appErr.Code)
	}
}

func TestCheckAndDecrement(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	medID := id.New()
	repo.balances[medID] = 10
	svc := NewService(repo, fakeNamer{medID: "Azithromycin"})

	if err := svc.CheckAndDecrement(ctx, medID, 10); err != nil {
		t.Fatalf("exact decrement should pass: %v", err)
	}
	if repo.balances[medID] != 0 {
		t.Errorf("expected pool 0, got %d", repo.balances[medID])
	}

	err := svc.CheckAndDecrement(ctx, medID, 1)
	if err == nil {
		t.Fatal("expected insufficient admin stock")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInsufficientAdminStock {
		t.Fatalf("expected admin insufficiency code, got %v", err)
	}
	if appErr.Details["available"] != int64(0) {
		t.Errorf("expected available 0, got %v", appErr.Details["available"])
	}
	if appErr.Details["medicine_name"] != "Azithromycin" {
		t.Errorf("expected medicine name resolved, got %v", appErr.Details["medicine_name"])
	}
}

func TestConsumeBatches_ReducesRecords(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	medID := id.New()
	if err := svc.Refill(ctx, []RefillItem{
		{MedicineID: medID, Quantity: 20, BatchNumber: "RX-1", ExpiryDate: farExpiry()},
	}); err != nil {
		t.Fatalf("refill: %v", err)
	}

	lots, err := svc.BatchLots(ctx, medID)
	if err != nil {
		t.Fatalf("batch lots: %v", err)
	}
	if len(lots) != 1 || lots[0].Quantity != 20 {
		t.Fatalf("unexpected lots: %+v", lots)
	}
}
