package medicine

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

// Service provides business logic for the Medicine catalog.
type Service struct {
	*domain.CatalogService[*Medicine]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Medicine service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Medicine]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "medicine",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate handles code generation and name uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, item *Medicine) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("MED"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}

	existing, err := s.repo.FindByName(ctx, item.Name)
	if err == nil && existing != nil && existing.ID != item.ID {
		return apperror.NewDuplicate("medicine", "name", item.Name)
	}

	return nil
}

// GetMany loads medicines by id, failing if any is missing or marked deleted.
func (s *Service) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*Medicine, error) {
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	byID := make(map[id.ID]*Medicine, len(items))
	for _, m := range items {
		byID[m.ID] = m
	}
	for _, want := range ids {
		m, ok := byID[want]
		if !ok {
			return nil, apperror.NewNotFound("medicine", want.String())
		}
		if m.DeletionMark {
			return nil, apperror.NewValidation("medicine is marked deleted").
				WithDetail("medicine_id", want.String()).
				WithDetail("name", m.Name)
		}
	}
	return byID, nil
}

// MedicineName resolves a medicine's display name (for error payloads).
func (s *Service) MedicineName(ctx context.Context, medicineID id.ID) (string, error) {
	m, err := s.GetByID(ctx, medicineID)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}
