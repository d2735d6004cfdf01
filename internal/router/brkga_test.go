package router

import (
	"context"
	"testing"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/geo"
)

func testCluster() ([]*domain.Delivery, *geo.Matrix, map[string]float64) {
	depot := domain.Point{Lat: 0, Lng: 0}
	cluster := []*domain.Delivery{
		{ID: "a", Point: domain.Point{Lat: 1, Lng: 0}},
		{ID: "b", Point: domain.Point{Lat: 1, Lng: 1}},
		{ID: "c", Point: domain.Point{Lat: 0, Lng: 1}},
		{ID: "d", Point: domain.Point{Lat: -1, Lng: 0}},
	}
	matrix := geo.Build(depot, cluster, 1)
	deadlines := map[string]float64{"a": 1000, "b": 1000, "c": 1000, "d": 1000}
	return cluster, matrix, deadlines
}

func TestBRKGADeterministicWithSameSeed(t *testing.T) {
	cluster, matrix, deadlines := testCluster()
	cfg := DefaultBRKGAConfig()
	cfg.G = 20
	cfg.Seed = 7

	seq1, res1, err := BRKGA(context.Background(), cluster, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq2, res2, err := BRKGA(context.Background(), cluster, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seq1) != len(seq2) {
		t.Fatalf("sequence length mismatch: %d vs %d", len(seq1), len(seq2))
	}
	for i := range seq1 {
		if seq1[i] != seq2[i] {
			t.Fatalf("non-deterministic sequence at index %d: %q vs %q", i, seq1[i], seq2[i])
		}
	}
	if res1.Duration != res2.Duration || res1.Penalty != res2.Penalty {
		t.Fatalf("non-deterministic cost: %+v vs %+v", res1, res2)
	}
}

func TestBRKGAProducesFeasibleSequence(t *testing.T) {
	cluster, matrix, deadlines := testCluster()
	cfg := DefaultBRKGAConfig()
	cfg.G = 10

	seq, _, err := BRKGA(context.Background(), cluster, matrix, 0, deadlines, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, id := range seq {
		if seen[id] {
			t.Fatalf("delivery %s visited twice", id)
		}
		seen[id] = true
	}
	if len(seen) != len(cluster) {
		t.Fatalf("expected every delivery visited exactly once, got %d of %d", len(seen), len(cluster))
	}
}

func TestBRKGASingleDelivery(t *testing.T) {
	depot := domain.Point{Lat: 0, Lng: 0}
	cluster := []*domain.Delivery{{ID: "only", Point: domain.Point{Lat: 1, Lng: 0}}}
	matrix := geo.Build(depot, cluster, 1)
	deadlines := map[string]float64{"only": 1000}

	seq, _, err := BRKGA(context.Background(), cluster, matrix, 0, deadlines, DefaultBRKGAConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq) != 1 || seq[0] != "only" {
		t.Errorf("seq = %v, want [only]", seq)
	}
}
