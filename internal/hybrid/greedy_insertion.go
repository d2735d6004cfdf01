// Package hybrid implements the two hybrid strategies of §4.6 (global
// cheapest insertion) and §4.7 (BRKGA over a giant tour, split by DP),
// where clustering and sequencing are fused into a single solve step.
package hybrid

import (
	"fmt"
	"sort"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
)

type vehicleState struct {
	id       int
	capacity int
	load     int
	route    []string
}

// GlobalCheapestInsertion implements §4.6: repeatedly find the
// (delivery, vehicle, position) triple whose insertion minimizes the
// global cost delta across every capacity-feasible candidate, insert it,
// and continue until no valid insertion remains. Ties break by delivery id
// ascending, then vehicle id, then position.
func GlobalCheapestInsertion(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) (*domain.RoutePlan, []*domain.Delivery, error) {
	states := make([]*vehicleState, len(vehicles))
	for i, v := range vehicles {
		states[i] = &vehicleState{id: v.ID, capacity: v.Capacity}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].id < states[j].id })

	sizeOf := make(map[string]int, len(deliveries))
	remaining := make([]*domain.Delivery, len(deliveries))
	copy(remaining, deliveries)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].ID < remaining[j].ID })
	for _, d := range remaining {
		sizeOf[d.ID] = d.Size
	}

	for len(remaining) > 0 {
		bestDelta := evaluator.Cost{}
		bestRemIdx, bestStateIdx, bestPos := -1, -1, -1
		haveBest := false

		for ri, d := range remaining {
			for si, st := range states {
				if st.load+d.Size > st.capacity {
					continue
				}
				before, err := evaluator.EvaluateSequence(st.route, t0, matrix, deadlines)
				if err != nil {
					return nil, nil, fmt.Errorf("global cheapest insertion: %w", err)
				}
				for p := 0; p <= len(st.route); p++ {
					candidate := make([]string, 0, len(st.route)+1)
					candidate = append(candidate, st.route[:p]...)
					candidate = append(candidate, d.ID)
					candidate = append(candidate, st.route[p:]...)

					after, err := evaluator.EvaluateSequence(candidate, t0, matrix, deadlines)
					if err != nil {
						return nil, nil, fmt.Errorf("global cheapest insertion: %w", err)
					}

					delta := evaluator.Cost{
						Penalty:  after.Penalty - before.Penalty,
						Duration: after.Duration - before.Duration,
					}

					if !haveBest || delta.Less(bestDelta) {
						haveBest = true
						bestDelta = delta
						bestRemIdx, bestStateIdx, bestPos = ri, si, p
					}
				}
			}
		}

		if !haveBest {
			break
		}

		d := remaining[bestRemIdx]
		st := states[bestStateIdx]
		newRoute := make([]string, 0, len(st.route)+1)
		newRoute = append(newRoute, st.route[:bestPos]...)
		newRoute = append(newRoute, d.ID)
		newRoute = append(newRoute, st.route[bestPos:]...)
		st.route = newRoute
		st.load += d.Size

		remaining = append(remaining[:bestRemIdx], remaining[bestRemIdx+1:]...)
	}

	plan := domain.NewRoutePlan()
	for _, st := range states {
		res, err := evaluator.EvaluateSequence(st.route, t0, matrix, deadlines)
		if err != nil {
			return nil, nil, fmt.Errorf("global cheapest insertion: final eval: %w", err)
		}
		plan.Entries[st.id] = &domain.RoutePlanEntry{
			VehicleID: st.id,
			Sequence:  st.route,
			Penalty:   res.Penalty,
			Duration:  res.Duration,
		}
	}

	return plan, remaining, nil
}
