package sale

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
	"clinicore/internal/domain/stockledger"
	"clinicore/internal/domain/txn"
	"clinicore/pkg/logger"
	"clinicore/pkg/numerator"
)

// TransportGate answers sale-level questions about shipments without
// pulling the transport package into this one.
type TransportGate interface {
	// HasShipped reports whether any transport for the sale left PENDING.
	HasShipped(ctx context.Context, saleID id.ID) (bool, error)

	// DeleteBySale removes a sale's transports.
	DeleteBySale(ctx context.Context, saleID id.ID) error

	// ReassignFranchise re-points a sale's transports to a new franchise.
	ReassignFranchise(ctx context.Context, saleID, franchiseID id.ID) error
}

// LineInput is one requested sale line.
type LineInput struct {
	MedicineID  id.ID          `json:"medicineId"`
	Quantity    types.Quantity `json:"quantity"`
	BatchNumber string         `json:"batchNumber,omitempty"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
}

// CreateRequest is the sale creation payload (admin only).
type CreateRequest struct {
	FranchiseID id.ID       `json:"franchiseId"`
	Date        *time.Time  `json:"date,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	Lines       []LineInput `json:"lines"`
}

// UpdateRequest is the sale edit payload (admin only). Nil fields keep the
// current value.
type UpdateRequest struct {
	FranchiseID *id.ID      `json:"franchiseId,omitempty"`
	Comment     *string     `json:"comment,omitempty"`
	Lines       []LineInput `json:"lines,omitempty"`
}

// Service orchestrates sale lifecycle. Edits re-validate the whole document
// from scratch; posted stock effects are reversed before any re-apply.
type Service struct {
	repo       Repository
	franchises *franchise.Service
	medicines  *medicine.Service
	ledger     *stockledger.Service
	txnRepo    txn.Repository
	transports TransportGate
	txManager  tx.Manager
	numerator  *numerator.Service
	recorder   audit.Recorder
}

// NewService creates the sale service.
func NewService(
	repo Repository,
	franchises *franchise.Service,
	medicines *medicine.Service,
	ledger *stockledger.Service,
	txnRepo txn.Repository,
	transports TransportGate,
	txManager tx.Manager,
	num *numerator.Service,
	recorder audit.Recorder,
) *Service {
	return &Service{
		repo:       repo,
		franchises: franchises,
		medicines:  medicines,
		ledger:     ledger,
		txnRepo:    txnRepo,
		transports: transports,
		txManager:  txManager,
		numerator:  num,
		recorder:   recorder,
	}
}

// buildLines prices the requested lines at the medicine standing rate and
// validates batch expiry against the allocation horizon.
func (s *Service) buildLines(ctx context.Context, target *Sale, inputs []LineInput) error {
	medIDs := make([]id.ID, 0, len(inputs))
	for _, line := range inputs {
		medIDs = append(medIDs, line.MedicineID)
	}
	meds, err := s.medicines.GetMany(ctx, medIDs)
	if err != nil {
		return err
	}

	cutoff := target.Date.AddDate(0, 0, stockledger.DefaultHorizonDays)
	// fresh slice: Update keeps a snapshot of the old lines for comparison
	target.Lines = make([]Line, 0, len(inputs))
	for i, line := range inputs {
		if line.ExpiryDate != nil && !line.ExpiryDate.After(cutoff) {
			return apperror.NewValidation("batch expires inside the allocation horizon").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1).
				WithDetail("batch_number", line.BatchNumber)
		}
		med := meds[line.MedicineID]
		target.AddLine(line.MedicineID, line.Quantity, med.Rate, line.BatchNumber, line.ExpiryDate)
	}
	target.RecalculateTotal()
	return nil
}

// Create records a new sale. No stock moves until delivery.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Sale, error) {
	if _, err := s.franchises.GetActive(ctx, req.FranchiseID); err != nil {
		return nil, err
	}

	sl := NewSale(req.FranchiseID)
	sl.Comment = req.Comment
	if req.Date != nil {
		sl.Date = *req.Date
	}
	if user := appctx.GetUser(ctx); user != nil {
		sl.CreatedBy = user.UserID
		sl.UpdatedBy = user.UserID
	}

	if err := s.buildLines(ctx, sl, req.Lines); err != nil {
		return nil, err
	}
	if err := sl.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SL"), nil, sl.Date)
	if err != nil {
		return nil, fmt.Errorf("generate sale number: %w", err)
	}
	sl.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sl)
	})
	if err != nil {
		return nil, fmt.Errorf("save sale: %w", err)
	}

	s.recorder.Record(ctx, "sale", sl.ID, audit.ActionCreate, map[string]any{
		"number":    sl.Number,
		"franchise": sl.FranchiseID.String(),
		"total":     sl.TotalAmount.String(),
	})
	logger.Info(ctx, "sale created", "sale_id", sl.ID, "number", sl.Number, "lines", len(sl.Lines))

	return sl, nil
}

// Update edits a sale. The whole document is re-validated as if newly
// created. Line edits are refused once any transport left PENDING: a
// dispatched transport already validated its details against the current
// lines. Changing only the destination franchise re-points the posted
// entries instead.
func (s *Service) Update(ctx context.Context, saleID id.ID, req UpdateRequest) (*Sale, error) {
	sl, err := s.repo.Get(ctx, saleID)
	if err != nil {
		return nil, err
	}

	shipped, err := s.transports.HasShipped(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("check shipments: %w", err)
	}

	oldFranchiseID := sl.FranchiseID
	oldLines := sl.Lines

	if req.FranchiseID != nil && !id.IsNil(*req.FranchiseID) {
		if _, err := s.franchises.GetActive(ctx, *req.FranchiseID); err != nil {
			return nil, err
		}
		sl.FranchiseID = *req.FranchiseID
	}
	if req.Comment != nil {
		sl.Comment = *req.Comment
	}
	if req.Lines != nil {
		if err := s.buildLines(ctx, sl, req.Lines); err != nil {
			return nil, err
		}
	}

	linesChanged := req.Lines != nil && !LinesEqual(oldLines, sl.Lines)
	if linesChanged && shipped {
		return nil, apperror.NewStateConflict("sale_shipped",
			"sale lines cannot change once a transport is dispatched")
	}

	if err := sl.Validate(ctx); err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil {
		sl.UpdatedBy = user.UserID
	}
	sl.Touch()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		header, err := s.txnRepo.GetBySource(ctx, entity.TransactionTypeSale, saleID)
		if err != nil {
			return fmt.Errorf("load stock transaction: %w", err)
		}

		if sl.FranchiseID != oldFranchiseID {
			if header != nil {
				if err := s.ledger.RepointTransaction(ctx, header.ID, oldFranchiseID, sl.FranchiseID); err != nil {
					return err
				}
				if err := s.txnRepo.UpdateFranchise(ctx, header.ID, sl.FranchiseID); err != nil {
					return fmt.Errorf("re-point stock transaction: %w", err)
				}
			}
			if err := s.transports.ReassignFranchise(ctx, saleID, sl.FranchiseID); err != nil {
				return fmt.Errorf("re-point transports: %w", err)
			}
		}

		return s.repo.Update(ctx, sl)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, "sale", sl.ID, audit.ActionUpdate, map[string]any{
		"number":    sl.Number,
		"franchise": sl.FranchiseID.String(),
		"total":     sl.TotalAmount.String(),
	})
	logger.Info(ctx, "sale updated", "sale_id", sl.ID, "number", sl.Number)

	return sl, nil
}

// Delete removes a sale. Posted stock effects are reversed first; the
// reversal fails with a conflict if the franchise already consumed the
// received stock.
func (s *Service) Delete(ctx context.Context, saleID id.ID) error {
	sl, err := s.repo.Get(ctx, saleID)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		header, err := s.txnRepo.GetBySource(ctx, entity.TransactionTypeSale, saleID)
		if err != nil {
			return fmt.Errorf("load stock transaction: %w", err)
		}
		if header != nil {
			if err := s.ledger.ReverseTransaction(ctx, header.ID); err != nil {
				return err
			}
			if err := s.txnRepo.Delete(ctx, header.ID); err != nil {
				return fmt.Errorf("delete stock transaction: %w", err)
			}
		}

		if err := s.transports.DeleteBySale(ctx, saleID); err != nil {
			return fmt.Errorf("delete transports: %w", err)
		}
		return s.repo.Delete(ctx, saleID)
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, "sale", sl.ID, audit.ActionDelete, map[string]any{
		"number": sl.Number,
	})
	logger.Info(ctx, "sale deleted", "sale_id", sl.ID, "number", sl.Number)

	return nil
}

// Get loads a sale, scoped to the caller's franchise for non-admins.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	sl, err := s.repo.Get(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() && sl.FranchiseID != user.FranchiseID {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return sl, nil
}

// List returns sales, scoped to the caller's franchise for non-admins.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		fid := user.FranchiseID
		filter.FranchiseID = &fid
	}
	return s.repo.List(ctx, filter)
}
