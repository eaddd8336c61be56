package patient

import (
	"context"
	"fmt"
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/core/tx"
	"clinicore/internal/domain"
	"clinicore/pkg/numerator"
)

// Service provides business logic for the Patient catalog.
type Service struct {
	*domain.CatalogService[*Patient]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Patient service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Patient]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "patient",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, item *Patient) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PAT"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}

// FindByPhone retrieves a patient by phone number.
func (s *Service) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return s.repo.FindByPhone(ctx, phone)
}

// ListByFranchise retrieves patients registered by one franchise.
func (s *Service) ListByFranchise(ctx context.Context, franchiseID id.ID, filter domain.ListFilter) (domain.ListResult[*Patient], error) {
	return s.repo.ListByFranchise(ctx, franchiseID, filter)
}
