package transport

import (
	"context"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// ListFilter narrows transport listings.
type ListFilter struct {
	FranchiseID *id.ID
	SaleID      *id.ID
	Status      *Status
	Limit       int
	Offset      int
}

// Repository persists transports with their details.
type Repository interface {
	// Create inserts the header and details.
	Create(ctx context.Context, t *Transport) error

	// Get loads a transport with its details.
	Get(ctx context.Context, transportID id.ID) (*Transport, error)

	// GetForUpdate loads a transport with a row lock (delivery posting).
	GetForUpdate(ctx context.Context, transportID id.ID) (*Transport, error)

	// Update rewrites the header and replaces the details.
	Update(ctx context.Context, t *Transport) error

	// ListBySale returns all transports for one sale.
	ListBySale(ctx context.Context, saleID id.ID) ([]*Transport, error)

	// DeleteBySale removes a sale's transports (sale delete cascade).
	DeleteBySale(ctx context.Context, saleID id.ID) error

	// List returns transport headers (no details).
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transport], error)
}
