package franchise

import (
	"clinicore/internal/domain"
)

// Repository defines the interface for Franchise persistence.
type Repository interface {
	domain.CatalogRepository[*Franchise]
}
