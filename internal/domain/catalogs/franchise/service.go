package franchise

import (
	"context"
	"fmt"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/id"
	"clinicore/internal/core/tx"
	"clinicore/internal/domain"
	"clinicore/pkg/numerator"
)

// Service provides business logic for the Franchise catalog.
type Service struct {
	*domain.CatalogService[*Franchise]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Franchise service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Franchise]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "franchise",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, item *Franchise) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("FR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}

// GetActive loads a franchise and verifies it can transact.
func (s *Service) GetActive(ctx context.Context, franchiseID id.ID) (*Franchise, error) {
	f, err := s.GetByID(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	if !f.Active || f.DeletionMark {
		return nil, apperror.NewValidation("franchise is not active").
			WithDetail("franchise_id", franchiseID.String()).
			WithDetail("name", f.Name)
	}
	return f, nil
}
