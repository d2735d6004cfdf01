package cluster

import (
	"testing"

	"meal-delivery-dispatch/internal/domain"
)

func TestGreedySequentialRespectsCapacity(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "far", Point: domain.Point{Lat: 10, Lng: 0}, Size: 6},
		{ID: "near", Point: domain.Point{Lat: 1, Lng: 0}, Size: 6},
	}
	vehicles := []*domain.Vehicle{
		{ID: 1, Capacity: 6},
		{ID: 2, Capacity: 6},
	}

	partition := GreedySequential(deliveries, vehicles, depot)

	if len(partition[1]) != 1 || len(partition[2]) != 1 {
		t.Fatalf("expected one delivery per vehicle, got partition %+v", partition)
	}
	// "far" is placed first (descending distance order), filling vehicle 1
	// to capacity; "near" then goes to vehicle 2.
	if partition[1][0].ID != "far" {
		t.Errorf("vehicle 1 got %q, want %q", partition[1][0].ID, "far")
	}
	if partition[2][0].ID != "near" {
		t.Errorf("vehicle 2 got %q, want %q", partition[2][0].ID, "near")
	}
}

func TestGreedySequentialLeavesUnfittableUnassigned(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "big", Point: domain.Point{Lat: 1, Lng: 0}, Size: 20},
	}
	vehicles := []*domain.Vehicle{{ID: 1, Capacity: 5}}

	partition := GreedySequential(deliveries, vehicles, depot)
	unassigned := partition.Unassigned(deliveries)

	if len(unassigned) != 1 || unassigned[0].ID != "big" {
		t.Errorf("expected 'big' to remain unassigned, got %+v", unassigned)
	}
}
