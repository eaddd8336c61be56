package medicinebill

import (
	"context"
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// ListFilter narrows bill listings.
type ListFilter struct {
	FranchiseID *id.ID
	PatientID   *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// Repository persists medicine bills with their lines.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, bill *MedicineBill) error

	// Get loads a bill with its lines.
	Get(ctx context.Context, billID id.ID) (*MedicineBill, error)

	// List returns bill headers (no lines).
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*MedicineBill], error)
}
