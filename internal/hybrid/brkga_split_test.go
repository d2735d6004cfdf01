package hybrid

import (
	"context"
	"testing"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/geo"
)

func TestSplitDPSplitsAcrossVehiclesWhenCapacityForces(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}, Size: 6},
		{ID: "b", Point: domain.Point{Lat: 2, Lng: 0}, Size: 6},
	}
	matrix := geo.Build(depot, deliveries, 1)
	vehicles := []*domain.Vehicle{{ID: 1, Capacity: 6}, {ID: 2, Capacity: 6}}
	sizeOf := map[string]int{"a": 6, "b": 6}
	deadlines := map[string]float64{"a": 1000, "b": 1000}

	_, segments, feasible, err := splitDP([]string{"a", "b"}, vehicles, matrix, 0, deadlines, sizeOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feasible {
		t.Fatal("expected feasible split")
	}

	total := 0
	for _, seg := range segments {
		total += len(seg)
	}
	if total != 2 {
		t.Fatalf("expected both deliveries placed, got segments=%+v", segments)
	}
	for _, seg := range segments {
		load := 0
		for _, id := range seg {
			load += sizeOf[id]
		}
		if load > 6 {
			t.Errorf("segment %+v exceeds capacity 6: load=%d", seg, load)
		}
	}
}

func TestSplitDPSingleVehicleFitsEverything(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}, Size: 1},
		{ID: "b", Point: domain.Point{Lat: 2, Lng: 0}, Size: 1},
		{ID: "c", Point: domain.Point{Lat: 3, Lng: 0}, Size: 1},
	}
	matrix := geo.Build(depot, deliveries, 1)
	vehicles := []*domain.Vehicle{{ID: 1, Capacity: 10}}
	sizeOf := map[string]int{"a": 1, "b": 1, "c": 1}
	deadlines := map[string]float64{"a": 1000, "b": 1000, "c": 1000}

	cost, segments, feasible, err := splitDP([]string{"a", "b", "c"}, vehicles, matrix, 0, deadlines, sizeOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feasible {
		t.Fatal("expected feasible split")
	}
	if len(segments) != 1 || len(segments[0]) != 3 {
		t.Fatalf("expected single segment with all 3 stops, got %+v", segments)
	}
	// depot->a->b->c->depot = 1 + 1 + 1 + 3 = 6, no lateness.
	if cost.Duration != 6 || cost.Penalty != 0 {
		t.Errorf("cost = %+v, want {Penalty:0 Duration:6}", cost)
	}
}

func TestSplitDPInfeasibleWhenDemandExceedsTotalCapacity(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}, Size: 20},
	}
	matrix := geo.Build(depot, deliveries, 1)
	vehicles := []*domain.Vehicle{{ID: 1, Capacity: 5}}
	sizeOf := map[string]int{"a": 20}
	deadlines := map[string]float64{"a": 1000}

	_, _, feasible, err := splitDP([]string{"a"}, vehicles, matrix, 0, deadlines, sizeOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feasible {
		t.Error("expected infeasible split when demand exceeds total capacity")
	}
}

func testFleet() ([]*domain.Delivery, []*domain.Vehicle, *geo.Matrix, map[string]float64) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}, Size: 2},
		{ID: "b", Point: domain.Point{Lat: 1, Lng: 1}, Size: 2},
		{ID: "c", Point: domain.Point{Lat: -1, Lng: 1}, Size: 2},
		{ID: "d", Point: domain.Point{Lat: -1, Lng: -1}, Size: 2},
	}
	vehicles := []*domain.Vehicle{{ID: 1, Capacity: 4}, {ID: 2, Capacity: 4}}
	matrix := geo.Build(depot, deliveries, 1)
	deadlines := map[string]float64{"a": 1000, "b": 1000, "c": 1000, "d": 1000}
	return deliveries, vehicles, matrix, deadlines
}

func TestBRKGASplitDeterministicWithSameSeed(t *testing.T) {
	deliveries, vehicles, matrix, deadlines := testFleet()
	cfg := DefaultBRKGAConfig()
	cfg.G = 15
	cfg.Seed = 3

	plan1, err := BRKGASplit(context.Background(), deliveries, vehicles, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan2, err := BRKGASplit(context.Background(), deliveries, vehicles, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for vehID, entry1 := range plan1.Entries {
		entry2, ok := plan2.Entries[vehID]
		if !ok {
			t.Fatalf("vehicle %d missing from second run", vehID)
		}
		if len(entry1.Sequence) != len(entry2.Sequence) {
			t.Fatalf("non-deterministic sequence length for vehicle %d: %d vs %d", vehID, len(entry1.Sequence), len(entry2.Sequence))
		}
		for i := range entry1.Sequence {
			if entry1.Sequence[i] != entry2.Sequence[i] {
				t.Fatalf("non-deterministic sequence for vehicle %d at %d: %q vs %q", vehID, i, entry1.Sequence[i], entry2.Sequence[i])
			}
		}
		if entry1.Penalty != entry2.Penalty || entry1.Duration != entry2.Duration {
			t.Fatalf("non-deterministic cost for vehicle %d: %+v vs %+v", vehID, entry1, entry2)
		}
	}
}

func TestBRKGASplitAssignsEveryDeliveryExactlyOnce(t *testing.T) {
	deliveries, vehicles, matrix, deadlines := testFleet()
	cfg := DefaultBRKGAConfig()
	cfg.G = 15

	plan, err := BRKGASplit(context.Background(), deliveries, vehicles, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, entry := range plan.Entries {
		for _, id := range entry.Sequence {
			if seen[id] {
				t.Fatalf("delivery %s assigned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != len(deliveries) {
		t.Fatalf("expected every delivery assigned exactly once, got %d of %d", len(seen), len(deliveries))
	}
}

func TestBRKGASplitEmptyDeliveries(t *testing.T) {
	_, vehicles, matrix, deadlines := testFleet()
	plan, err := BRKGASplit(context.Background(), nil, vehicles, matrix, 0, deadlines, DefaultBRKGAConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Entries) != 0 {
		t.Errorf("expected empty plan, got %+v", plan.Entries)
	}
}
