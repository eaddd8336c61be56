package consultation

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

// ServiceInput is one requested service charge.
type ServiceInput struct {
	Name string      `json:"name"`
	Fee  types.Money `json:"fee"`
}

// MedicineInput is one requested dispensing line.
type MedicineInput struct {
	MedicineID id.ID          `json:"medicineId"`
	Quantity   types.Quantity `json:"quantity"`
}

// CreateRequest is the consultation creation payload. A non-nil
// ReceiptAmount asks for a payment receipt to be issued with the visit.
type CreateRequest struct {
	FranchiseID   *id.ID          `json:"franchiseId,omitempty"`
	PatientID     id.ID           `json:"patientId"`
	DoctorName    string          `json:"doctorName,omitempty"`
	Date          *time.Time      `json:"date,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	Services      []ServiceInput  `json:"services"`
	Medicines     []MedicineInput `json:"medicines"`
	ReceiptAmount *types.Money    `json:"receiptAmount,omitempty"`
}

// Service orchestrates consultation posting. Medicines are allocated FEFO
// like bills; a services-only visit skips the stock engine entirely.
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

// NewService creates the consultation service.
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
		return id.Nil(), apperror.NewForbidden("cannot post for another franchise")
	}
	return user.FranchiseID, nil
}

// Create validates and posts a consultation atomically.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Consultation, error) {
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

	var meds map[id.ID]*medicine.Medicine
	if len(req.Medicines) > 0 {
		medIDs := make([]id.ID, 0, len(req.Medicines))
		for _, line := range req.Medicines {
			medIDs = append(medIDs, line.MedicineID)
		}
		meds, err = s.medicines.GetMany(ctx, medIDs)
		if err != nil {
			return nil, err
		}
	}

	cons := NewConsultation(franchiseID, req.PatientID)
	cons.DoctorName = req.DoctorName
	cons.Comment = req.Comment
	if req.Date != nil {
		cons.Date = *req.Date
	}
	if user := appctx.GetUser(ctx); user != nil {
		cons.CreatedBy = user.UserID
		cons.UpdatedBy = user.UserID
	}

	total := types.ZeroMoney()
	for _, svc := range req.Services {
		cons.AddService(svc.Name, svc.Fee)
		total = total.Add(svc.Fee)
	}
	for _, line := range req.Medicines {
		med := meds[line.MedicineID]
		cons.AddMedicine(line.MedicineID, line.Quantity, med.MRP)
		total = total.Add(med.MRP.Mul(line.Quantity.Decimal()))
	}
	cons.TotalAmount = total
	if req.ReceiptAmount != nil {
		amount := *req.ReceiptAmount
		cons.ReceiptAmount = &amount
	}

	if err := cons.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CN"), nil, cons.Date)
	if err != nil {
		return nil, fmt.Errorf("generate consultation number: %w", err)
	}
	cons.Number = number

	if cons.HasReceipt() {
		receiptNumber, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("RC"), nil, cons.Date)
		if err != nil {
			return nil, fmt.Errorf("generate receipt number: %w", err)
		}
		cons.ReceiptNumber = receiptNumber
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var plans []stockledger.Plan
		if cons.HasMedicines() {
			plans, err = s.allocateMedicines(ctx, franchiseID, cons, meds)
			if err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, cons); err != nil {
			return fmt.Errorf("save consultation: %w", err)
		}

		if cons.HasMedicines() {
			header := entity.NewStockTransaction(entity.TransactionTypeConsultation, cons.ID, franchiseID, cons.Number)
			if err := s.txnRepo.Create(ctx, header); err != nil {
				return fmt.Errorf("create stock transaction: %w", err)
			}
			for _, pl := range plans {
				med := meds[pl.MedicineID]
				if err := s.ledger.ApplyAllocation(ctx, header.ID, franchiseID, pl, med.Rate); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, "consultation", cons.ID, audit.ActionCreate, map[string]any{
		"number":    cons.Number,
		"franchise": franchiseID.String(),
		"patient":   req.PatientID.String(),
		"total":     cons.TotalAmount.String(),
	})
	logger.Info(ctx, "consultation created",
		"consultation_id", cons.ID,
		"number", cons.Number,
		"services", len(cons.Services),
		"medicines", len(cons.Medicines),
	)

	return cons, nil
}

// allocateMedicines sums duplicate lines per medicine, checks sufficiency
// once per distinct medicine under a row lock, then allocates line by line
// against a shared lot set so the distinct check stays truthful.
func (s *Service) allocateMedicines(ctx context.Context, franchiseID id.ID, cons *Consultation, meds map[id.ID]*medicine.Medicine) ([]stockledger.Plan, error) {
	required := make(map[id.ID]types.Quantity)
	for _, line := range cons.Medicines {
		required[line.MedicineID] += line.Quantity
	}

	lotsByMed := make(map[id.ID][]stockledger.BatchLot)
	for _, line := range cons.Medicines {
		if _, seen := lotsByMed[line.MedicineID]; seen {
			continue
		}
		med := meds[line.MedicineID]
		if err := s.ledger.CheckAvailability(ctx, franchiseID, line.MedicineID, med.Name, required[line.MedicineID]); err != nil {
			return nil, err
		}
		lots, err := s.ledger.EligibleBatches(ctx, franchiseID, line.MedicineID, cons.Date, stockledger.DefaultHorizonDays)
		if err != nil {
			return nil, fmt.Errorf("load eligible batches: %w", err)
		}
		lotsByMed[line.MedicineID] = lots
	}

	plans := make([]stockledger.Plan, 0, len(cons.Medicines))
	for _, line := range cons.Medicines {
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

// Get loads a consultation, scoped to the caller's franchise for non-admins.
func (s *Service) Get(ctx context.Context, consultationID id.ID) (*Consultation, error) {
	cons, err := s.repo.Get(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() && cons.FranchiseID != user.FranchiseID {
		return nil, apperror.NewNotFound("consultation", consultationID.String())
	}
	return cons, nil
}

// List returns consultations, scoped to the caller's franchise for non-admins.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Consultation], error) {
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		fid := user.FranchiseID
		filter.FranchiseID = &fid
	}
	return s.repo.List(ctx, filter)
}
