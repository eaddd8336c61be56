package stockledger

import (
	"context"
	"fmt"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
	"clinicore/pkg/logger"
)

// Service provides ledger and balance mutation on top of the repository.
// Transactions are managed by the caller (the document orchestrators); every
// method here assumes an active transaction in the context.
type Service struct {
	repo Repository
}

// NewService creates a new stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Repo exposes the repository for read-only handler paths.
func (s *Service) Repo() Repository {
	return s.repo
}

// EligibleBatches fetches allocation candidates for one medicine.
func (s *Service) EligibleBatches(ctx context.Context, franchiseID, medicineID id.ID, asOf time.Time, horizonDays int) ([]BatchLot, error) {
	return s.repo.EligibleBatches(ctx, franchiseID, medicineID, asOf, horizonDays)
}

// ApplyAllocation writes one outflow ledger entry per plan assignment and
// decrements the batch and aggregate balances. Amounts use the medicine's
// standing rate, not a bill line's MRP.
func (s *Service) ApplyAllocation(ctx context.Context, transactionID, franchiseID id.ID, plan Plan, rate types.Money) error {
	if len(plan.Assignments) == 0 {
		return apperror.NewValidation("allocation plan is empty").
			WithDetail("medicine_id", plan.MedicineID.String())
	}

	entries := make([]entity.LedgerEntry, 0, len(plan.Assignments))
	for _, a := range plan.Assignments {
		entries = append(entries, entity.NewLedgerEntry(
			transactionID, franchiseID, plan.MedicineID,
			a.BatchNumber, a.ExpiryDate,
			a.Quantity.Neg(), rate,
		))
	}
	if err := s.repo.InsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}

	for _, a := range plan.Assignments {
		if err := s.repo.AddToBatchBalance(ctx, franchiseID, plan.MedicineID, a.BatchNumber, a.ExpiryDate, a.Quantity.Neg()); err != nil {
			return fmt.Errorf("decrement batch %s: %w", a.BatchNumber, err)
		}
	}
	if err := s.repo.AddToAggregateBalance(ctx, franchiseID, plan.MedicineID, plan.Total().Neg()); err != nil {
		return fmt.Errorf("decrement aggregate balance: %w", err)
	}

	logger.Info(ctx, "allocation applied",
		"transaction_id", transactionID,
		"medicine_id", plan.MedicineID,
		"quantity", plan.Total().Int64(),
		"batches", len(plan.Assignments),
	)

	return nil
}

// ApplyReceipt writes inflow ledger entries (transport posting into a
// franchise) and increments batch and aggregate balances, creating batch
// rows on first stock-in.
func (s *Service) ApplyReceipt(ctx context.Context, transactionID, franchiseID, medicineID id.ID, assignments []Assignment, rate types.Money) error {
	if len(assignments) == 0 {
		return apperror.NewValidation("receipt has no batch lines").
			WithDetail("medicine_id", medicineID.String())
	}

	entries := make([]entity.LedgerEntry, 0, len(assignments))
	var total types.Quantity
	for _, a := range assignments {
		entries = append(entries, entity.NewLedgerEntry(
			transactionID, franchiseID, medicineID,
			a.BatchNumber, a.ExpiryDate,
			a.Quantity, rate,
		))
		total += a.Quantity
	}
	if err := s.repo.InsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}

	for _, a := range assignments {
		if err := s.repo.AddToBatchBalance(ctx, franchiseID, medicineID, a.BatchNumber, a.ExpiryDate, a.Quantity); err != nil {
			return fmt.Errorf("increment batch %s: %w", a.BatchNumber, err)
		}
	}
	if err := s.repo.AddToAggregateBalance(ctx, franchiseID, medicineID, total); err != nil {
		return fmt.Errorf("increment aggregate balance: %w", err)
	}

	logger.Info(ctx, "receipt applied",
		"transaction_id", transactionID,
		"medicine_id", medicineID,
		"quantity", total.Int64(),
	)

	return nil
}

// ReverseTransaction is the mirror of apply: each entry's quantity change is
// added back to its batch (upsert if the row vanished) and aggregate, then
// the entries are deleted. Must precede any re-allocation in an edit flow.
func (s *Service) ReverseTransaction(ctx context.Context, transactionID id.ID) error {
	entries, err := s.repo.EntriesByTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	// per-(franchise, medicine) aggregate deltas
	type aggKey struct {
		franchiseID id.ID
		medicineID  id.ID
	}
	aggDeltas := make(map[aggKey]types.Quantity)

	for _, e := range entries {
		undo := e.QtyChange.Neg()
		if err := s.repo.AddToBatchBalance(ctx, e.FranchiseID, e.MedicineID, e.BatchNumber, e.ExpiryDate, undo); err != nil {
			return fmt.Errorf("reverse batch %s: %w", e.BatchNumber, err)
		}
		aggDeltas[aggKey{e.FranchiseID, e.MedicineID}] += undo
	}
	for key, delta := range aggDeltas {
		if delta == 0 {
			continue
		}
		if err := s.repo.AddToAggregateBalance(ctx, key.franchiseID, key.medicineID, delta); err != nil {
			return fmt.Errorf("reverse aggregate balance: %w", err)
		}
	}

	if err := s.repo.DeleteEntriesByTransaction(ctx, transactionID); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}

	logger.Info(ctx, "transaction reversed",
		"transaction_id", transactionID,
		"entries", len(entries),
	)

	return nil
}

// RepointTransaction moves a transaction's entries (and their balance
// effects) from one franchise to another, preserving quantities. Used when a
// sale's franchise changes without touching its lines.
func (s *Service) RepointTransaction(ctx context.Context, transactionID, fromFranchiseID, toFranchiseID id.ID) error {
	entries, err := s.repo.EntriesByTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load ledger entries: %w", err)
	}

	medicineDeltas := make(map[id.ID]types.Quantity)
	for _, e := range entries {
		// pull the effect out of the old franchise
		if err := s.repo.AddToBatchBalance(ctx, fromFranchiseID, e.MedicineID, e.BatchNumber, e.ExpiryDate, e.QtyChange.Neg()); err != nil {
			return fmt.Errorf("unwind batch %s: %w", e.BatchNumber, err)
		}
		// and apply it to the new one
		if err := s.repo.AddToBatchBalance(ctx, toFranchiseID, e.MedicineID, e.BatchNumber, e.ExpiryDate, e.QtyChange); err != nil {
			return fmt.Errorf("apply batch %s: %w", e.BatchNumber, err)
		}
		medicineDeltas[e.MedicineID] += e.QtyChange
	}
	for medicineID, delta := range medicineDeltas {
		if delta == 0 {
			continue
		}
		if err := s.repo.AddToAggregateBalance(ctx, fromFranchiseID, medicineID, delta.Neg()); err != nil {
			return fmt.Errorf("unwind aggregate balance: %w", err)
		}
		if err := s.repo.AddToAggregateBalance(ctx, toFranchiseID, medicineID, delta); err != nil {
			return fmt.Errorf("apply aggregate balance: %w", err)
		}
	}

	if err := s.repo.ReassignEntriesFranchise(ctx, transactionID, toFranchiseID); err != nil {
		return fmt.Errorf("reassign entries: %w", err)
	}

	logger.Info(ctx, "transaction re-pointed",
		"transaction_id", transactionID,
		"from_franchise", fromFranchiseID,
		"to_franchise", toFranchiseID,
	)

	return nil
}

// CheckAvailability verifies, under a row lock, that the aggregate balance
// covers the required quantity. Consultation posting aggregates duplicate
// medicine lines and runs this once per distinct medicine.
func (s *Service) CheckAvailability(ctx context.Context, franchiseID, medicineID id.ID, medicineName string, required types.Quantity) error {
	balance, err := s.repo.AggregateBalanceForUpdate(ctx, franchiseID, medicineID)
	if err != nil {
		return fmt.Errorf("get aggregate balance: %w", err)
	}
	if balance < required {
		return apperror.NewInsufficientStock(medicineID.String(), medicineName, required.Int64(), balance.Int64())
	}
	return nil
}
