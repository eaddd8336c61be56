// Package stockledger provides the batch-allocation engine and the
// immutable stock ledger with batch/aggregate balance maintenance.
package stockledger

import (
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

// DefaultHorizonDays is the minimum remaining shelf-life a batch must have
// to be eligible for allocation in bill/consultation/refill contexts.
const DefaultHorizonDays = 90

// BatchLot is an eligible batch as fetched from the balance store,
// already horizon-filtered and ordered soonest-expiry-first.
type BatchLot struct {
	BatchNumber string         `db:"batch_number" json:"batchNumber"`
	ExpiryDate  time.Time      `db:"expiry_date" json:"expiryDate"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
}

// Assignment is one (batch, quantity) pair of an allocation plan.
type Assignment struct {
	BatchNumber string         `json:"batchNumber"`
	ExpiryDate  time.Time      `json:"expiryDate"`
	Quantity    types.Quantity `json:"quantity"`
}

// Plan is the computed allocation for one request line. It is ephemeral:
// consumed immediately to produce ledger entries and balance decrements.
type Plan struct {
	MedicineID  id.ID
	Requested   types.Quantity
	Assignments []Assignment
}

// Total returns the sum of assigned quantities.
func (p Plan) Total() types.Quantity {
	var total types.Quantity
	for _, a := range p.Assignments {
		total += a.Quantity
	}
	return total
}

// Allocate greedily assigns the requested quantity across eligible lots,
// earliest expiry first (FEFO). Lots must already be ordered by expiry
// ascending; Allocate preserves that order and never assigns more than a
// lot holds. Fails with an insufficient-stock error naming the medicine
// when the lots cannot cover the request. Pure computation, no writes.
func Allocate(medicineID id.ID, medicineName string, requested types.Quantity, lots []BatchLot) (Plan, error) {
	plan := Plan{MedicineID: medicineID, Requested: requested}

	if requested <= 0 {
		return plan, apperror.NewValidation("requested quantity must be positive").
			WithDetail("medicine_id", medicineID.String())
	}

	var available types.Quantity
	for _, lot := range lots {
		available += lot.Quantity
	}
	if available < requested {
		return plan, apperror.NewInsufficientStock(
			medicineID.String(), medicineName,
			requested.Int64(), available.Int64(),
		)
	}

	remaining := requested
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}
		take := lot.Quantity
		if remaining < take {
			take = remaining
		}
		plan.Assignments = append(plan.Assignments, Assignment{
			BatchNumber: lot.BatchNumber,
			ExpiryDate:  lot.ExpiryDate,
			Quantity:    take,
		})
		remaining -= take
	}

	return plan, nil
}

// SplitFEFO assigns up to the requested quantity across lots in expiry order
// without failing on shortage: the result simply caps at what is available.
// Used to derive transport dispatch splits from sale lines.
func SplitFEFO(requested types.Quantity, lots []BatchLot) []Assignment {
	var assignments []Assignment
	remaining := requested
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}
		take := lot.Quantity
		if remaining < take {
			take = remaining
		}
		assignments = append(assignments, Assignment{
			BatchNumber: lot.BatchNumber,
			ExpiryDate:  lot.ExpiryDate,
			Quantity:    take,
		})
		remaining -= take
	}
	return assignments
}

// SortLotsByExpiry orders lots soonest-expiry-first, preserving the incoming
// order for equal expiries (insertion order tie-break). Used when lots come
// from an in-memory source rather than the balance store query.
func SortLotsByExpiry(lots []BatchLot) []BatchLot {
	sorted := make([]BatchLot, len(lots))
	copy(sorted, lots)
	// insertion sort keeps the tie-break stable without a comparator detour
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].ExpiryDate.Before(sorted[j-1].ExpiryDate); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}

// Consume decrements the in-memory lot quantities per the assignments.
// Consultation posting allocates line by line against one eligible set;
// Consume keeps that set consistent between lines.
func Consume(lots []BatchLot, assignments []Assignment) []BatchLot {
	for _, a := range assignments {
		for i := range lots {
			if lots[i].BatchNumber == a.BatchNumber && lots[i].ExpiryDate.Equal(a.ExpiryDate) {
				lots[i].Quantity -= a.Quantity
				break
			}
		}
	}
	return lots
}
