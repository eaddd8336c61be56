package medicine

import (
	"context"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// Repository defines the interface for Medicine persistence.
type Repository interface {
	domain.CatalogRepository[*Medicine]

	// GetMany retrieves medicines by ids in one round trip.
	GetMany(ctx context.Context, ids []id.ID) ([]*Medicine, error)

	// FindByName retrieves a medicine by exact name.
	FindByName(ctx context.Context, name string) (*Medicine, error)
}
