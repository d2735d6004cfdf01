package dispatch

import (
	"testing"
	"time"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/geo"
)

func TestDepartureTimeASAPIsImmediate(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}}}
	matrix := geo.Build(depot, deliveries, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nextTick := now.Add(5 * time.Minute)
	deadlines := map[string]time.Time{"a": now.Add(time.Hour)}

	dep, err := DepartureTime(ASAP, []string{"a"}, now, nextTick, matrix, deadlines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dep.Equal(now) {
		t.Errorf("dep = %v, want %v", dep, now)
	}
}

func TestDepartureTimeJITDelaysWithinSlackAndNextTick(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}}}
	matrix := geo.Build(depot, deliveries, 1) // depot->a = 1 minute
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nextTick := now.Add(30 * time.Minute)
	// deadline 100 minutes out, travel takes 1 minute -> slack ~99 minutes,
	// bounded by nextTick's 30-minute horizon.
	deadlines := map[string]time.Time{"a": now.Add(100 * time.Minute)}

	dep, err := DepartureTime(JIT, []string{"a"}, now, nextTick, matrix, deadlines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dep.Equal(nextTick) {
		t.Errorf("dep = %v, want bounded by next tick %v", dep, nextTick)
	}
}

func TestDepartureTimeJITDeparturesNowWhenNoSlack(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}}}
	matrix := geo.Build(depot, deliveries, 1) // depot->a = 1 minute
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nextTick := now.Add(30 * time.Minute)
	// deadline is already tighter than the 1-minute travel time: no slack.
	deadlines := map[string]time.Time{"a": now.Add(30 * time.Second)}

	dep, err := DepartureTime(JIT, []string{"a"}, now, nextTick, matrix, deadlines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dep.Equal(now) {
		t.Errorf("dep = %v, want immediate departure %v", dep, now)
	}
}

func TestDepartureTimeEmptySequenceIsImmediate(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	matrix := geo.Build(depot, nil, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nextTick := now.Add(30 * time.Minute)

	dep, err := DepartureTime(JIT, nil, now, nextTick, matrix, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dep.Equal(now) {
		t.Errorf("dep = %v, want %v", dep, now)
	}
}

func TestApplyFillsDepartAtForEveryEntry(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}}}
	matrix := geo.Build(depot, deliveries, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nextTick := now.Add(30 * time.Minute)
	deadlines := map[string]time.Time{"a": now.Add(time.Hour)}

	plan := domain.NewRoutePlan()
	plan.Entries[1] = &domain.RoutePlanEntry{VehicleID: 1, Sequence: []string{"a"}}
	plan.Entries[2] = &domain.RoutePlanEntry{VehicleID: 2, Sequence: nil}

	if err := Apply(ASAP, plan, matrix, now, nextTick, deadlines); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for vehID, entry := range plan.Entries {
		if entry.DepartAt.IsZero() {
			t.Errorf("vehicle %d: DepartAt not set", vehID)
		}
	}
}
