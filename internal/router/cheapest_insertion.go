// Package router implements the per-cluster sequencing strategies of
// §4.4 (greedy cheapest insertion) and §4.5 (BRKGA).
package router

import (
	"fmt"
	"sort"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
)

// CheapestInsertion implements §4.4: starting from the delivery nearest the
// depot, repeatedly insert the remaining delivery at the position that
// minimizes the added travel time, with ties broken by lowest delivery id
// then lowest position. No capacity check — the cluster is already
// capacity-feasible.
func CheapestInsertion(cluster []*domain.Delivery, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) ([]string, evaluator.Result, error) {
	if len(cluster) == 0 {
		return nil, evaluator.Result{Arrivals: map[string]float64{}}, nil
	}

	sorted := make([]*domain.Delivery, len(cluster))
	copy(sorted, cluster)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var seed *domain.Delivery
	bestDist := -1.0
	for _, d := range sorted {
		t, err := matrix.Travel("", d.ID)
		if err != nil {
			return nil, evaluator.Result{}, fmt.Errorf("cheapest insertion: %w", err)
		}
		if bestDist < 0 || t < bestDist {
			bestDist = t
			seed = d
		}
	}

	route := []string{seed.ID}
	remaining := make([]*domain.Delivery, 0, len(sorted)-1)
	for _, d := range sorted {
		if d.ID != seed.ID {
			remaining = append(remaining, d)
		}
	}

	for len(remaining) > 0 {
		bestDelta := 0.0
		bestIdx := -1
		bestK := ""
		bestPos := -1
		haveBest := false

		for ri, k := range remaining {
			for p := 0; p <= len(route); p++ {
				left := ""
				if p > 0 {
					left = route[p-1]
				}
				right := ""
				if p < len(route) {
					right = route[p]
				}

				tik, err := matrix.Travel(left, k.ID)
				if err != nil {
					return nil, evaluator.Result{}, fmt.Errorf("cheapest insertion: %w", err)
				}
				tkj, err := matrix.Travel(k.ID, right)
				if err != nil {
					return nil, evaluator.Result{}, fmt.Errorf("cheapest insertion: %w", err)
				}
				tij, err := matrix.Travel(left, right)
				if err != nil {
					return nil, evaluator.Result{}, fmt.Errorf("cheapest insertion: %w", err)
				}
				delta := tik + tkj - tij

				if !haveBest || delta < bestDelta ||
					(delta == bestDelta && (k.ID < bestK || (k.ID == bestK && p < bestPos))) {
					haveBest = true
					bestDelta = delta
					bestIdx = ri
					bestK = k.ID
					bestPos = p
				}
			}
		}

		newRoute := make([]string, 0, len(route)+1)
		newRoute = append(newRoute, route[:bestPos]...)
		newRoute = append(newRoute, bestK)
		newRoute = append(newRoute, route[bestPos:]...)
		route = newRoute

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	result, err := evaluator.EvaluateSequence(route, t0, matrix, deadlines)
	if err != nil {
		return nil, evaluator.Result{}, fmt.Errorf("cheapest insertion: %w", err)
	}
	return route, result, nil
}
