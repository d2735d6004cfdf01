package evaluator

import (
	"testing"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/geo"
)

func TestEvaluateSequenceOnTime(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 0, Lng: 1}},
		{ID: "b", Point: domain.Point{Lat: 0, Lng: 2}},
	}
	matrix := geo.Build(depot, deliveries, 10) // 10 minutes per unit distance

	deadlines := map[string]float64{"a": 100, "b": 100}
	res, err := EvaluateSequence([]string{"a", "b"}, 0, matrix, deadlines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Penalty != 0 {
		t.Errorf("penalty = %v, want 0", res.Penalty)
	}
	// depot->a = 10, a->b = 10, b->depot = 20: total 40
	if res.Duration != 40 {
		t.Errorf("duration = %v, want 40", res.Duration)
	}
	if res.Arrivals["a"] != 10 {
		t.Errorf("arrival a = %v, want 10", res.Arrivals["a"])
	}
	if res.Arrivals["b"] != 20 {
		t.Errorf("arrival b = %v, want 20", res.Arrivals["b"])
	}
}

func TestEvaluateSequenceLateness(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 0, Lng: 1}},
	}
	matrix := geo.Build(depot, deliveries, 10)

	deadlines := map[string]float64{"a": 5}
	res, err := EvaluateSequence([]string{"a"}, 0, matrix, deadlines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// arrival at a is 10, deadline 5: lateness 5
	if res.Penalty != 5 {
		t.Errorf("penalty = %v, want 5", res.Penalty)
	}
}

func TestEvaluateSequenceEmpty(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	matrix := geo.Build(depot, nil, 1)
	res, err := EvaluateSequence(nil, 0, matrix, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Penalty != 0 || res.Duration != 0 {
		t.Errorf("expected zero-cost result for empty sequence, got %+v", res)
	}
}

func TestEvaluateSequenceMissingDeadline(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	deliveries := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 0, Lng: 1}},
	}
	matrix := geo.Build(depot, deliveries, 1)
	if _, err := EvaluateSequence([]string{"a"}, 0, matrix, map[string]float64{}); err == nil {
		t.Fatal("expected error for missing deadline")
	}
}

func TestCostLess(t *testing.T) {
	cheaper := Cost{Penalty: 0, Duration: 100}
	pricier := Cost{Penalty: 1, Duration: 1}
	if !cheaper.Less(pricier) {
		t.Error("lower penalty should win regardless of duration")
	}

	a := Cost{Penalty: 5, Duration: 10}
	b := Cost{Penalty: 5, Duration: 20}
	if !a.Less(b) {
		t.Error("equal penalty should fall back to duration")
	}
}
