package transport

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
	"clinicore/internal/domain/adminstock"
	"clinicore/internal/domain/audit"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/domain/documents/sale"
	"clinicore/internal/domain/stockledger"
	"clinicore/internal/domain/txn"
	"clinicore/pkg/logger"
	"clinicore/pkg/numerator"
)

// DetailInput is one dispatched batch line.
type DetailInput struct {
	MedicineID  id.ID          `json:"medicineId"`
	Quantity    types.Quantity `json:"quantity"`
	BatchNumber string         `json:"batchNumber"`
	ExpiryDate  time.Time      `json:"expiryDate"`
}

// CreateRequest is the transport creation payload (admin only).
type CreateRequest struct {
	SaleID     id.ID         `json:"saleId"`
	VehicleNo  string        `json:"vehicleNo,omitempty"`
	DriverName string        `json:"driverName,omitempty"`
	Comment    string        `json:"comment,omitempty"`
	Details    []DetailInput `json:"details,omitempty"`
}

// AdminUpdateRequest edits logistics while PENDING; Dispatch moves the
// transport forward. Admins can never set DELIVERED.
type AdminUpdateRequest struct {
	VehicleNo  *string       `json:"vehicleNo,omitempty"`
	DriverName *string       `json:"driverName,omitempty"`
	Comment    *string       `json:"comment,omitempty"`
	Details    []DetailInput `json:"details,omitempty"`
	Dispatch   bool          `json:"dispatch,omitempty"`
}

// Service orchestrates the transport lifecycle and the delivery posting
// that moves stock from the admin pool into the franchise ledger.
type Service struct {
	repo      Repository
	sales     sale.Repository
	medicines *medicine.Service
	pool      *adminstock.Service
	ledger    *stockledger.Service
	txnRepo   txn.Repository
	txManager tx.Manager
	numerator *numerator.Service
	recorder  audit.Recorder
}

// NewService creates the transport service.
func NewService(
	repo Repository,
	sales sale.Repository,
	medicines *medicine.Service,
	pool *adminstock.Service,
	ledger *stockledger.Service,
	txnRepo txn.Repository,
	txManager tx.Manager,
	num *numerator.Service,
	recorder audit.Recorder,
) *Service {
	return &Service{
		repo:      repo,
		sales:     sales,
		medicines: medicines,
		pool:      pool,
		ledger:    ledger,
		txnRepo:   txnRepo,
		txManager: txManager,
		numerator: num,
		recorder:  recorder,
	}
}

// validateDetails checks detail lines against the sale: no medicine outside
// the sale, no quantity above what the sale line carries.
func validateDetails(sl *sale.Sale, details []Detail) error {
	sold := make(map[id.ID]types.Quantity)
	for _, line := range sl.Lines {
		sold[line.MedicineID] += line.Quantity
	}
	shipped := make(map[id.ID]types.Quantity)
	for _, d := range details {
		shipped[d.MedicineID] += d.Quantity
	}
	for medID, qty := range shipped {
		limit, ok := sold[medID]
		if !ok {
			return apperror.NewValidation("detail medicine is not on the sale").
				WithDetail("medicine_id", medID.String())
		}
		if qty > limit {
			return apperror.NewValidation("dispatch quantity exceeds sale quantity").
				WithDetail("medicine_id", medID.String()).
				WithDetail("sold", limit.Int64()).
				WithDetail("dispatched", qty.Int64())
		}
	}
	return nil
}

// Create records a pending transport for a sale (admin only).
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Transport, error) {
	sl, err := s.sales.Get(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}

	t := NewTransport(sl.ID, sl.FranchiseID)
	t.VehicleNo = req.VehicleNo
	t.DriverName = req.DriverName
	t.Comment = req.Comment
	if user := appctx.GetUser(ctx); user != nil {
		t.CreatedBy = user.UserID
		t.UpdatedBy = user.UserID
	}
	for _, d := range req.Details {
		t.AddDetail(d.MedicineID, d.Quantity, d.BatchNumber, d.ExpiryDate)
	}

	if err := t.Validate(ctx); err != nil {
		return nil, err
	}
	if err := validateDetails(sl, t.Details); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("TR"),
		&numerator.Options{Strategy: numerator.StrategyCached}, t.Date)
	if err != nil {
		return nil, fmt.Errorf("generate transport number: %w", err)
	}
	t.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("save transport: %w", err)
	}

	s.recorder.Record(ctx, "transport", t.ID, audit.ActionCreate, map[string]any{
		"number": t.Number,
		"sale":   sl.ID.String(),
	})
	logger.Info(ctx, "transport created", "transport_id", t.ID, "number", t.Number, "sale_id", sl.ID)

	return t, nil
}

// AdminUpdate edits a transport. Logistics and details change only while
// PENDING; Dispatch moves PENDING to DISPATCHED. DELIVERED is the
// franchise's transition, never the admin's.
func (s *Service) AdminUpdate(ctx context.Context, transportID id.ID, req AdminUpdateRequest) (*Transport, error) {
	t, err := s.repo.Get(ctx, transportID)
	if err != nil {
		return nil, err
	}

	editsRequested := req.VehicleNo != nil || req.DriverName != nil || req.Comment != nil || req.Details != nil
	if editsRequested && t.Status != StatusPending {
		return nil, apperror.NewStateConflict("transport_not_pending",
			"transport can only be edited while pending")
	}

	if req.VehicleNo != nil {
		t.VehicleNo = *req.VehicleNo
	}
	if req.DriverName != nil {
		t.DriverName = *req.DriverName
	}
	if req.Comment != nil {
		t.Comment = *req.Comment
	}
	if req.Details != nil {
		t.Details = t.Details[:0]
		for _, d := range req.Details {
			t.AddDetail(d.MedicineID, d.Quantity, d.BatchNumber, d.ExpiryDate)
		}
		sl, err := s.sales.Get(ctx, t.SaleID)
		if err != nil {
			return nil, err
		}
		if err := validateDetails(sl, t.Details); err != nil {
			return nil, err
		}
	}

	if req.Dispatch {
		if t.Status != StatusPending {
			return nil, apperror.NewStateConflict("transport_not_pending",
				"only a pending transport can be dispatched")
		}
		now := time.Now().UTC()
		t.Status = StatusDispatched
		t.DispatchedAt = &now
	}

	if err := t.Validate(ctx); err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil {
		t.UpdatedBy = user.UserID
	}
	t.Touch()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("save transport: %w", err)
	}

	s.recorder.Record(ctx, "transport", t.ID, audit.ActionUpdate, map[string]any{
		"number": t.Number,
		"status": string(t.Status),
	})
	logger.Info(ctx, "transport updated", "transport_id", t.ID, "status", t.Status)

	return t, nil
}

// Deliver is the franchise confirmation that goods arrived. It posts the
// stock exactly once: repeated calls on a delivered transport succeed
// without effect, any other state mismatch is a conflict.
func (s *Service) Deliver(ctx context.Context, transportID id.ID) (*Transport, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}

	var result *Transport
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, transportID)
		if err != nil {
			return err
		}
		if !user.IsAdmin() && t.FranchiseID != user.FranchiseID {
			return apperror.NewNotFound("transport", transportID.String())
		}

		if t.Status == StatusDelivered {
			// idempotent: the first delivery already posted
			result = t
			return nil
		}
		if t.Status != StatusDispatched {
			return apperror.NewStateConflict("transport_not_dispatched",
				"only a dispatched transport can be delivered")
		}
		if t.IsPosted() {
			// status lost the race but stock is in; never post twice
			return apperror.NewStateConflict("transport_already_posted",
				"transport stock was already posted")
		}

		sl, err := s.sales.Get(ctx, t.SaleID)
		if err != nil {
			return err
		}

		receipts, err := s.buildReceipts(ctx, t, sl)
		if err != nil {
			return err
		}

		medIDs := make([]id.ID, 0, len(receipts))
		for medID := range receipts {
			medIDs = append(medIDs, medID)
		}
		meds, err := s.medicines.GetMany(ctx, medIDs)
		if err != nil {
			return err
		}

		// take everything out of the admin pool before any ledger write
		for medID, assignments := range receipts {
			var total types.Quantity
			for _, a := range assignments {
				total += a.Quantity
			}
			if err := s.pool.CheckAndDecrement(ctx, medID, total); err != nil {
				return err
			}
			if err := s.pool.ConsumeBatches(ctx, medID, assignments); err != nil {
				return err
			}
		}

		header, err := s.txnRepo.GetBySource(ctx, entity.TransactionTypeSale, sl.ID)
		if err != nil {
			return fmt.Errorf("load stock transaction: %w", err)
		}
		if header == nil {
			h := entity.NewStockTransaction(entity.TransactionTypeSale, sl.ID, sl.FranchiseID, sl.Number)
			if err := s.txnRepo.Create(ctx, h); err != nil {
				return fmt.Errorf("create stock transaction: %w", err)
			}
			header = &h
		}

		for medID, assignments := range receipts {
			med := meds[medID]
			if err := s.ledger.ApplyReceipt(ctx, header.ID, sl.FranchiseID, medID, assignments, med.Rate); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		t.Status = StatusDelivered
		t.DeliveredAt = &now
		t.StockPostedAt = &now
		t.UpdatedBy = user.UserID
		t.Touch()
		if err := s.repo.Update(ctx, t); err != nil {
			return fmt.Errorf("save transport: %w", err)
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, "transport", result.ID, audit.ActionPost, map[string]any{
		"number": result.Number,
		"status": string(result.Status),
	})
	logger.Info(ctx, "transport delivered", "transport_id", result.ID, "number", result.Number)

	return result, nil
}

// buildReceipts resolves what lands at the franchise, per medicine. Explicit
// transport details win; otherwise each sale line's pinned batch is used,
// and a line without one is split FEFO over the admin pool's batch records.
func (s *Service) buildReceipts(ctx context.Context, t *Transport, sl *sale.Sale) (map[id.ID][]stockledger.Assignment, error) {
	receipts := make(map[id.ID][]stockledger.Assignment)

	if len(t.Details) > 0 {
		for _, d := range t.Details {
			receipts[d.MedicineID] = append(receipts[d.MedicineID], stockledger.Assignment{
				BatchNumber: d.BatchNumber,
				ExpiryDate:  d.ExpiryDate,
				Quantity:    d.Quantity,
			})
		}
		return receipts, nil
	}

	for _, line := range sl.Lines {
		if line.BatchNumber != "" && line.ExpiryDate != nil {
			receipts[line.MedicineID] = append(receipts[line.MedicineID], stockledger.Assignment{
				BatchNumber: line.BatchNumber,
				ExpiryDate:  *line.ExpiryDate,
				Quantity:    line.Quantity,
			})
			continue
		}

		lots, err := s.pool.BatchLots(ctx, line.MedicineID)
		if err != nil {
			return nil, err
		}
		assignments := stockledger.SplitFEFO(line.Quantity, stockledger.SortLotsByExpiry(lots))
		var covered types.Quantity
		for _, a := range assignments {
			covered += a.Quantity
		}
		if covered < line.Quantity {
			name := ""
			if n, err := s.medicines.MedicineName(ctx, line.MedicineID); err == nil {
				name = n
			}
			return nil, apperror.NewInsufficientAdminStock(
				line.MedicineID.String(), name,
				line.Quantity.Int64(), covered.Int64(),
			)
		}
		receipts[line.MedicineID] = append(receipts[line.MedicineID], assignments...)
	}

	return receipts, nil
}

// Get loads a transport, scoped to the caller's franchise for non-admins.
func (s *Service) Get(ctx context.Context, transportID id.ID) (*Transport, error) {
	t, err := s.repo.Get(ctx, transportID)
	if err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() && t.FranchiseID != user.FranchiseID {
		return nil, apperror.NewNotFound("transport", transportID.String())
	}
	return t, nil
}

// List returns transports, scoped to the caller's franchise for non-admins.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transport], error) {
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		fid := user.FranchiseID
		filter.FranchiseID = &fid
	}
	return s.repo.List(ctx, filter)
}
