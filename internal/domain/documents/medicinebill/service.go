package medicinebill

import (
	"context"
	"fmt"
	"time"

	"clinicore/internal/core/apperror"
	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/entity"
	"clinicore/internal/core/id"
	"clinicore/internal/core/tx"
	"clinicore/internal/core/types"
	"clinicore/internal/domain"
	"clinicore/internal/domain/audit"
	"clinicore/internal/domain/catalogs/franchise"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/domain/catalogs/patient"
	"clinicore/internal/domain/stockledger"
	"clinicore/internal/domain/txn"
	"clinicore/pkg/logger"
	"clinicore/pkg/numerator"
)

// LineInput is one requested dispensing line. Amount, when sent by the
// client, is cross-checked against the server-side computation.
type LineInput struct {
	MedicineID id.ID          `json:"medicineId"`
	Quantity   types.Quantity `json:"quantity"`
	Amount     *types.Money   `json:"amount,omitempty"`
}

// CreateRequest is the bill creation payload.
type CreateRequest struct {
	// FranchiseID is honored for admin callers only; franchise users
	// always bill against their own franchise.
	FranchiseID *id.ID       `json:"franchiseId,omitempty"`
	PatientID   id.ID        `json:"patientId"`
	Date        *time.Time   `json:"date,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	Discount    types.Money  `json:"discount"`
	NetAmount   *types.Money `json:"netAmount,omitempty"`
	Lines       []LineInput  `json:"lines"`
}

// Service orchestrates bill creation: amount recomputation, batch
// allocation across all lines, and ledger posting in one transaction.
type Service struct {
	repo       Repository
	franchises *franchise.Service
	patients   *patient.Service
	medicines  *medicine.Service
	ledger     *stockledger.Service
	txnRepo    txn.Repository
	txManager  tx.Manager
	numerator  *numerator.Service
	recorder   audit.Recorder
}

// NewService creates the medicine bill service.
func NewService(
	repo Repository,
	franchises *franchise.Service,
	patients *patient.Service,
	medicines *medicine.Service,
	ledger *stockledger.Service,
	txnRepo txn.Repository,
	txManager tx.Manager,
	num *numerator.Service,
	recorder audit.Recorder,
) *Service {
	return &Service{
		repo:       repo,
		franchises: franchises,
		patients:   patients,
		medicines:  medicines,
		ledger:     ledger,
		txnRepo:    txnRepo,
		txManager:  txManager,
		numerator:  num,
		recorder:   recorder,
	}
}

// resolveFranchise picks the franchise a caller bills against.
func (s *Service) resolveFranchise(ctx context.Context, requested *id.ID) (id.ID, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return id.Nil(), apperror.NewUnauthorized("missing user context")
	}
	if user.IsAdmin() {
		if requested == nil || id.IsNil(*requested) {
			return id.Nil(), apperror.NewValidation("franchise is required for admin callers").
				WithDetail("field", "franchiseId")
		}
		return *requested, nil
	}
	if requested != nil && !id.IsNil(*requested) && *requested != user.FranchiseID {
		return id.Nil(), apperror.NewForbidden("cannot bill for another franchise")
	}
	return user.FranchiseID, nil
}

// Create validates, prices, allocates, and posts a bill atomically. Every
// line is allocated before any write; any shortage aborts the whole bill.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*MedicineBill, error) {
	franchiseID, err := s.resolveFranchise(ctx, req.FranchiseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.franchises.GetActive(ctx, franchiseID); err != nil {
		return nil, err
	}

	pat, err := s.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if pat.DeletionMark {
		return nil, apperror.NewValidation("patient is marked deleted").
			WithDetail("patient_id", req.PatientID.String())
	}

	medIDs := make([]id.ID, 0, len(req.Lines))
	for _, line := range req.Lines {
		medIDs = append(medIDs, line.MedicineID)
	}
	meds, err := s.medicines.GetMany(ctx, medIDs)
	if err != nil {
		return nil, err
	}

	bill := NewMedicineBill(franchiseID, req.PatientID)
	bill.Comment = req.Comment
	if req.Date != nil {
		bill.Date = *req.Date
	}
	if user := appctx.GetUser(ctx); user != nil {
		bill.CreatedBy = user.UserID
		bill.UpdatedBy = user.UserID
	}

	// server-side pricing; client figures are checked, never trusted
	for i, line := range req.Lines {
		med := meds[line.MedicineID]
		amount := med.MRP.Mul(line.Quantity.Decimal())
		if line.Amount != nil && !types.MoneyEqual(*line.Amount, amount) {
			return nil, apperror.NewAmountMismatch(
				fmt.Sprintf("lines[%d].amount", i),
				amount.String(), line.Amount.String(),
			)
		}
		bill.AddLine(line.MedicineID, line.Quantity, med.MRP)
	}

	total := types.ZeroMoney()
	for _, line := range bill.Lines {
		total = total.Add(line.Amount)
	}
	if req.Discount.GreaterThan(total) {
		return nil, apperror.NewValidation("discount exceeds bill total").
			WithDetail("field", "discount").
			WithDetail("total", total.String()).
			WithDetail("discount", req.Discount.String())
	}
	bill.TotalAmount = total
	bill.Discount = req.Discount
	bill.NetAmount = total.Sub(req.Discount)
	if req.NetAmount != nil && !types.MoneyEqual(*req.NetAmount, bill.NetAmount) {
		return nil, apperror.NewAmountMismatch("netAmount", bill.NetAmount.String(), req.NetAmount.String())
	}

	if err := bill.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("MB"), nil, bill.Date)
	if err != nil {
		return nil, fmt.Errorf("generate bill number: %w", err)
	}
	bill.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		plans, err := s.allocateLines(ctx, franchiseID, bill, meds)
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, bill); err != nil {
			return fmt.Errorf("save bill: %w", err)
		}

		header := entity.NewStockTransaction(entity.TransactionTypeMedicineBill, bill.ID, franchiseID, bill.Number)
		if err := s.txnRepo.Create(ctx, header); err != nil {
			return fmt.Errorf("create stock transaction: %w", err)
		}

		for _, pl := range plans {
			med := meds[pl.MedicineID]
			if err := s.ledger.ApplyAllocation(ctx, header.ID, franchiseID, pl, med.Rate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, "medicine_bill", bill.ID, audit.ActionCreate, map[string]any{
		"number":    bill.Number,
		"franchise": franchiseID.String(),
		"patient":   req.PatientID.String(),
		"net":       bill.NetAmount.String(),
	})
	logger.Info(ctx, "medicine bill created",
		"bill_id", bill.ID,
		"number", bill.Number,
		"lines", len(bill.Lines),
	)

	return bill, nil
}

// allocateLines computes one FEFO plan per line. Sufficiency is checked per
// distinct medicine under a row lock so duplicate lines cannot each pass on
// the same stock, and the eligible lot set is consumed in memory between
// lines of the same medicine.
func (s *Service) allocateLines(ctx context.Context, franchiseID id.ID, bill *MedicineBill, meds map[id.ID]*medicine.Medicine) ([]stockledger.Plan, error) {
	required := make(map[id.ID]types.Quantity)
	for _, line := range bill.Lines {
		required[line.MedicineID] += line.Quantity
	}

	lotsByMed := make(map[id.ID][]stockledger.BatchLot)
	for _, line := range bill.Lines {
		if _, seen := lotsByMed[line.MedicineID]; seen {
			continue
		}
		med := meds[line.MedicineID]
		if err := s.ledger.CheckAvailability(ctx, franchiseID, line.MedicineID, med.Name, required[line.MedicineID]); err != nil {
			return nil, err
		}
		lots, err := s.ledger.EligibleBatches(ctx, franchiseID, line.MedicineID, bill.Date, stockledger.DefaultHorizonDays)
		if err != nil {
			return nil, fmt.Errorf("load eligible batches: %w", err)
		}
		lotsByMed[line.MedicineID] = lots
	}

	plans := make([]stockledger.Plan, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		med := meds[line.MedicineID]
		plan, err := stockledger.Allocate(line.MedicineID, med.Name, line.Quantity, lotsByMed[line.MedicineID])
		if err != nil {
			return nil, err
		}
		lotsByMed[line.MedicineID] = stockledger.Consume(lotsByMed[line.MedicineID], plan.Assignments)
		plans = append(plans, plan)
	}
	return plans, nil
}

// Get loads a bill, scoped to the caller's franchise for non-admins.
func (s *Service) Get(ctx context.Context, billID id.ID) (*MedicineBill, error) {
	bill, err := s.repo.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() && bill.FranchiseID != user.FranchiseID {
		return nil, apperror.NewNotFound("medicine_bill", billID.String())
	}
	return bill, nil
}

// List returns bills, scoped to the caller's franchise for non-admins.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*MedicineBill], error) {
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		fid := user.FranchiseID
		filter.FranchiseID = &fid
	}
	return s.repo.List(ctx, filter)
}
