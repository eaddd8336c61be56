package consultation

import (
	"context"
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/domain"
)

// ListFilter narrows consultation listings.
type ListFilter struct {
	FranchiseID *id.ID
	PatientID   *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// Repository persists consultations with their service and medicine lines.
type Repository interface {
	// Create inserts the header and both table parts.
	Create(ctx context.Context, c *Consultation) error

	// Get loads a consultation with its lines.
	Get(ctx context.Context, consultationID id.ID) (*Consultation, error)

	// List returns consultation headers (no lines).
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Consultation], error)
}
