package stockledger

import (
	"testing"
	"time"

	"clinicore/internal/core/apperror"
	"clinicore/internal/core/id"
	"clinicore/internal/core/types"
)

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestAllocate_FEFOOrder(t *testing.T) {
	medID := id.New()

	// B1 qty=5 expiry=+120d, B2 qty=10 expiry=+200d; request 8
	lots := []BatchLot{
		{BatchNumber: "B1", ExpiryDate: day(120), Quantity: 5},
		{BatchNumber: "B2", ExpiryDate: day(200), Quantity: 10},
	}

	plan, err := Allocate(medID, "Paracetamol", 8, lots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(plan.Assignments))
	}
	if plan.Assignments[0].BatchNumber != "B1" || plan.Assignments[0].Quantity != 5 {
		t.Errorf("expected B1:5 first, got %s:%d", plan.Assignments[0].BatchNumber, plan.Assignments[0].Quantity)
	}
	if plan.Assignments[1].BatchNumber != "B2" || plan.Assignments[1].Quantity != 3 {
		t.Errorf("expected B2:3 second, got %s:%d", plan.Assignments[1].BatchNumber, plan.Assignments[1].Quantity)
	}
	if plan.Total() != 8 {
		t.Errorf("expected total 8, got %d", plan.Total())
	}
}

func TestAllocate_Conservation(t *testing.T) {
	medID := id.New()

	tests := []struct {
		name      string
		lots      []BatchLot
		requested types.Quantity
	}{
		{
			name: "exact fit across three batches",
			lots: []BatchLot{
				{BatchNumber: "A", ExpiryDate: day(100), Quantity: 3},
				{BatchNumber: "B", ExpiryDate: day(150), Quantity: 4},
				{BatchNumber: "C", ExpiryDate: day(300), Quantity: 5},
			},
			requested: 12,
		},
		{
			name: "single batch covers everything",
			lots: []BatchLot{
				{BatchNumber: "A", ExpiryDate: day(100), Quantity: 50},
				{BatchNumber: "B", ExpiryDate: day(150), Quantity: 4},
			},
			requested: 7,
		},
		{
			name: "skips zero-quantity lot",
			lots: []BatchLot{
				{BatchNumber: "A", ExpiryDate: day(100), Quantity: 0},
				{BatchNumber: "B", ExpiryDate: day(150), Quantity: 9},
			},
			requested: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Allocate(medID, "M", tt.requested, tt.lots)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Total() != tt.requested {
				t.Errorf("total %d != requested %d", plan.Total(), tt.requested)
			}
			avail := make(map[string]types.Quantity)
			for _, lot := range tt.lots {
				avail[lot.BatchNumber] = lot.Quantity
			}
			for _, a := range plan.Assignments {
				if a.Quantity <= 0 {
					t.Errorf("batch %s assigned non-positive quantity %d", a.BatchNumber, a.Quantity)
				}
				if a.Quantity > avail[a.BatchNumber] {
					t.Errorf("batch %s over-assigned: %d > %d", a.BatchNumber, a.Quantity, avail[a.BatchNumber])
				}
			}
		})
	}
}

func TestAllocate_Insufficient(t *testing.T) {
	medID := id.New()

	lots := []BatchLot{
		{BatchNumber: "B1", ExpiryDate: day(120), Quantity: 5},
		{BatchNumber: "B2", ExpiryDate: day(200), Quantity: 10},
	}

	_, err := Allocate(medID, "Amoxicillin", 20, lots)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperror.CodeInsufficientStock {
		t.Errorf("expected %s, got %s", apperror.CodeInsufficientStock, appErr.Code)
	}
	if appErr.Details["available"] != int64(15) {
		t.Errorf("expected available 15, got %v", appErr.Details["available"])
	}
	if appErr.Details["required"] != int64(20) {
		t.Errorf("expected required 20, got %v", appErr.Details["required"])
	}
	if appErr.Details["medicine_name"] != "Amoxicillin" {
		t.Errorf("expected medicine name in details, got %v", appErr.Details["medicine_name"])
	}
}

func TestAllocate_NoEligibleLots(t *testing.T) {
	// a batch inside the safety horizon is filtered before Allocate sees it;
	// with nothing left, even qty=1 must fail with available=0
	_, err := Allocate(id.New(), "Ibuprofen", 1, nil)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Details["available"] != int64(0) {
		t.Errorf("expected available 0, got %v", appErr.Details["available"])
	}
}

func TestAllocate_RejectsNonPositiveRequest(t *testing.T) {
	_, err := Allocate(id.New(), "M", 0, nil)
	if err == nil {
		t.Fatal("expected validation error for zero request")
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Code != apperror.CodeValidation {
		t.Errorf("expected validation code, got %s", appErr.Code)
	}
}

func TestSplitFEFO_CapsAtAvailable(t *testing.T) {
	lots := []BatchLot{
		{BatchNumber: "B1", ExpiryDate: day(30), Quantity: 2},
		{BatchNumber: "B2", ExpiryDate: day(60), Quantity: 3},
	}

	assignments := SplitFEFO(10, lots)
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	var total types.Quantity
	for _, a := range assignments {
		total += a.Quantity
	}
	if total != 5 {
		t.Errorf("expected capped total 5, got %d", total)
	}
	if assignments[0].BatchNumber != "B1" {
		t.Errorf("expected soonest expiry first, got %s", assignments[0].BatchNumber)
	}
}

func TestSortLotsByExpiry_StableTieBreak(t *testing.T) {
	lots := []BatchLot{
		{BatchNumber: "LATE", ExpiryDate: day(300), Quantity: 1},
		{BatchNumber: "T1", ExpiryDate: day(100), Quantity: 1},
		{BatchNumber: "T2", ExpiryDate: day(100), Quantity: 1},
		{BatchNumber: "EARLY", ExpiryDate: day(50), Quantity: 1},
	}

	sorted := SortLotsByExpiry(lots)
	want := []string{"EARLY", "T1", "T2", "LATE"}
	for i, w := range want {
		if sorted[i].BatchNumber != w {
			t.Errorf("position %d: expected %s, got %s", i, w, sorted[i].BatchNumber)
		}
	}
	// input untouched
	if lots[0].BatchNumber != "LATE" {
		t.Error("SortLotsByExpiry must not mutate its input")
	}
}

func TestConsume_DecrementsMatchedLots(t *testing.T) {
	lots := []BatchLot{
		{BatchNumber: "B1", ExpiryDate: day(120), Quantity: 5},
		{BatchNumber: "B2", ExpiryDate: day(200), Quantity: 10},
	}

	lots = Consume(lots, []Assignment{
		{BatchNumber: "B1", ExpiryDate: day(120), Quantity: 5},
		{BatchNumber: "B2", ExpiryDate: day(200), Quantity: 3},
	})

	if lots[0].Quantity != 0 {
		t.Errorf("B1 should be exhausted, got %d", lots[0].Quantity)
	}
	if lots[1].Quantity != 7 {
		t.Errorf("B2 should hold 7, got %d", lots[1].Quantity)
	}
}
