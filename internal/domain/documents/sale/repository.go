package sale

import (
	"context"
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// ListFilter narrows sale listings.
type ListFilter struct {
	FranchiseID *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// Repository persists sales with their lines.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, s *Sale) error

	// Get loads a sale with its lines.
	Get(ctx context.Context, saleID id.ID) (*Sale, error)

	// Update rewrites the header and replaces the lines.
	Update(ctx context.Context, s *Sale) error

	// Delete removes the sale and its lines.
	Delete(ctx context.Context, saleID id.ID) error

	// List returns sale headers (no lines).
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}
