package adminstock

import (
	"context"
	"fmt"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/internal/domain/stockledger"
	"clinicore/pkg/logger"
)

// MedicineNamer resolves medicine names for error payloads.
type MedicineNamer interface {
	MedicineName(ctx context.Context, medicineID id.ID) (string, error)
}

// Service wraps pool mutations with the business rules: refill expiry
// validation and the check-and-decrement used by transport posting.
type Service struct {
	repo  Repository
	namer MedicineNamer
}

// NewService creates the admin stock service.
func NewService(repo Repository, namer MedicineNamer) *Service {
	return &Service{repo: repo, namer: namer}
}

// RefillItem is one line of a pool refill. Batch metadata is optional: a
// plain item only tops up the pool quantity.
type RefillItem struct {
	MedicineID  id.ID          `json:"medicineId"`
	Quantity    types.Quantity `json:"quantity"`
	BatchNumber string         `json:"batchNumber,omitempty"`
	ExpiryDate  time.Time      `json:"expiryDate,omitempty"`
}

// Refill adds stock to the pool. Lines carrying batch metadata must expire
// beyond the allocation horizon, otherwise the batch would be dead weight
// the moment it reaches a franchise; batch-tagged lines also seed the batch
// records that dispatch splits draw from.
func (s *Service) Refill(ctx context.Context, items []RefillItem) error {
	if len(items) == 0 {
		return apperror.NewValidation("refill has no items")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, stockledger.DefaultHorizonDays)
	for i, item := range items {
		if item.Quantity <= 0 {
			return apperror.NewValidation("refill quantity must be positive").
				WithDetail("line", i)
		}
		if item.BatchNumber == "" {
			continue
		}
		if !item.ExpiryDate.After(cutoff) {
			return apperror.NewValidation("batch expires inside the allocation horizon").
				WithDetail("line", i).
				WithDetail("batch_number", item.BatchNumber).
				WithDetail("expiry_date", item.ExpiryDate.Format("2006-01-02"))
		}
	}

	for _, item := range items {
		if err := s.repo.Increment(ctx, item.MedicineID, item.Quantity); err != nil {
			return fmt.Errorf("increment pool for medicine %s: %w", item.MedicineID, err)
		}
		if item.BatchNumber == "" {
			continue
		}
		if err := s.repo.UpsertBatchRecord(ctx, BatchRecord{
			MedicineID:  item.MedicineID,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  item.ExpiryDate,
			Quantity:    item.Quantity,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("record batch %s: %w", item.BatchNumber, err)
		}
	}

	logger.Info(ctx, "admin pool refilled", "items", len(items))
	return nil
}

// CheckAndDecrement takes quantity out of the pool for one medicine. The
// decrement is conditional: a failed guard re-reads the balance to report
// the shortfall rather than leaving the pool negative.
func (s *Service) CheckAndDecrement(ctx context.Context, medicineID id.ID, required types.Quantity) error {
	if required <= 0 {
		return apperror.NewValidation("required quantity must be positive").
			WithDetail("medicine_id", medicineID.String())
	}

	ok, err := s.repo.DecrementIfAvailable(ctx, medicineID, required)
	if err != nil {
		return fmt.Errorf("decrement admin pool: %w", err)
	}
	if !ok {
		available, err := s.repo.Balance(ctx, medicineID)
		if err != nil {
			return fmt.Errorf("read admin pool balance: %w", err)
		}
		name := ""
		if s.namer != nil {
			if n, err := s.namer.MedicineName(ctx, medicineID); err == nil {
				name = n
			}
		}
		return apperror.NewInsufficientAdminStock(medicineID.String(), name, required.Int64(), available.Int64())
	}
	return nil
}

// ConsumeBatches walks a dispatch's batch assignments through the batch
// records so later dispatches see the remaining quantities.
func (s *Service) ConsumeBatches(ctx context.Context, medicineID id.ID, assignments []stockledger.Assignment) error {
	for _, a := range assignments {
		if err := s.repo.ConsumeBatchRecord(ctx, medicineID, a.BatchNumber, a.ExpiryDate, a.Quantity); err != nil {
			return fmt.Errorf("consume batch record %s: %w", a.BatchNumber, err)
		}
	}
	return nil
}

// BatchLots returns the pool's batch records for a medicine as allocation
// lots, expiry ascending.
func (s *Service) BatchLots(ctx context.Context, medicineID id.ID) ([]stockledger.BatchLot, error) {
	records, err := s.repo.BatchRecords(ctx, medicineID)
	if err != nil {
		return nil, fmt.Errorf("list batch records: %w", err)
	}
	lots := make([]stockledger.BatchLot, 0, len(records))
	for _, rec := range records {
		lots = append(lots, stockledger.BatchLot{
			BatchNumber: rec.BatchNumber,
			ExpiryDate:  rec.ExpiryDate,
			Quantity:    rec.Quantity,
		})
	}
	return lots, nil
}

// Balance reads one medicine's pool quantity.
func (s *Service) Balance(ctx context.Context, medicineID id.ID) (types.Quantity, error) {
	return s.repo.Balance(ctx, medicineID)
}

// List returns pool rows for the admin stock screen.
func (s *Service) List(ctx context.Context, excludeZero bool) ([]entity.AdminStockBalance, error) {
	return s.repo.List(ctx, excludeZero)
}
