package hybrid

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
	"meal-delivery-dispatch/internal/simerrors"
)

// BRKGAConfig controls the BRKGA-hybrid's evolutionary loop; the loop
// itself is identical to the per-cluster router's (§4.5), only the decoder
// differs.
type BRKGAConfig struct {
	P      int
	PE     float64
	PM     float64
	Rho    float64
	G      int
	StallS int
	Seed   uint64
}

func DefaultBRKGAConfig() BRKGAConfig {
	return BRKGAConfig{P: 100, PE: 0.2, PM: 0.15, Rho: 0.7, G: 100, StallS: 20, Seed: 1}
}

type splitChromosome struct {
	keys     []float64
	tour     []string
	fitness  evaluator.Cost
	feasible bool
	segments [][]string // per-vehicle (fixed input order) sequences, including empty trailing ones
}

var infiniteCost = evaluator.Cost{Penalty: math.Inf(1), Duration: math.Inf(1)}

func addCost(a, b evaluator.Cost) evaluator.Cost {
	return evaluator.Cost{Penalty: a.Penalty + b.Penalty, Duration: a.Duration + b.Duration}
}

// BRKGASplit implements §4.7: evolve a permutation of all ready deliveries
// (the giant tour), decoded by an optimal DP split into ≤ M
// capacity-feasible sub-routes, one per vehicle in fixed input order.
func BRKGASplit(ctx context.Context, deliveries []*domain.Delivery, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, cfg BRKGAConfig) (*domain.RoutePlan, error) {
	if len(deliveries) == 0 {
		return domain.NewRoutePlan(), nil
	}

	ids := make([]string, len(deliveries))
	sizeOf := make(map[string]int, len(deliveries))
	for i, d := range deliveries {
		ids[i] = d.ID
		sizeOf[d.ID] = d.Size
	}
	sort.Strings(ids)

	n := len(ids)
	eliteCount := int(float64(cfg.P)*cfg.PE + 0.5)
	mutantCount := int(float64(cfg.P)*cfg.PM + 0.5)
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount+mutantCount >= cfg.P {
		mutantCount = cfg.P - eliteCount - 1
		if mutantCount < 0 {
			mutantCount = 0
		}
	}

	decodeChromosome := func(keys []float64) (*splitChromosome, error) {
		tour := giantTour(ids, keys)
		fitness, segments, feasible, err := splitDP(tour, vehicles, matrix, t0, deadlines, sizeOf)
		if err != nil {
			return nil, err
		}
		return &splitChromosome{keys: keys, tour: tour, fitness: fitness, feasible: feasible, segments: segments}, nil
	}

	population := make([]*splitChromosome, cfg.P)
	if err := evalSplitParallel(ctx, population, func(i int) (*splitChromosome, error) {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		keys := make([]float64, n)
		for k := range keys {
			keys[k] = rng.Float64()
		}
		return decodeChromosome(keys)
	}); err != nil {
		return nil, fmt.Errorf("brkga split: initial population: %w", err)
	}
	sortSplitPopulation(population)

	best := population[0]
	stall := 0

	for gen := 1; gen <= cfg.G && stall < cfg.StallS; gen++ {
		select {
		case <-ctx.Done():
			gen = cfg.G + 1 // soft deadline: stop evolving, return best-so-far (§5)
			continue
		default:
		}

		elites := population[:eliteCount]
		nonElite := population[eliteCount:]
		next := make([]*splitChromosome, cfg.P)
		copy(next[:eliteCount], elites)

		err := evalSplitParallel(ctx, next[eliteCount:], func(offset int) (*splitChromosome, error) {
			i := eliteCount + offset
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(gen)*1_000_003+uint64(i)))
			if i >= cfg.P-mutantCount {
				keys := make([]float64, n)
				for k := range keys {
					keys[k] = rng.Float64()
				}
				return decodeChromosome(keys)
			}
			eliteParent := elites[rng.IntN(len(elites))]
			nonEliteParent := nonElite[rng.IntN(len(nonElite))]
			keys := make([]float64, n)
			for k := range keys {
				if rng.Float64() < cfg.Rho {
					keys[k] = eliteParent.keys[k]
				} else {
					keys[k] = nonEliteParent.keys[k]
				}
			}
			return decodeChromosome(keys)
		})
		if err != nil {
			return nil, fmt.Errorf("brkga split: generation %d: %w", gen, err)
		}

		population = next
		sortSplitPopulation(population)

		if splitCostLess(population[0], best) {
			best = population[0]
			stall = 0
		} else {
			stall++
		}
	}

	if !best.feasible {
		return nil, simerrors.NewInfeasibleAssignment("brkga split", fmt.Errorf("no split of %d deliveries fits within %d vehicles' capacity", n, len(vehicles)))
	}

	plan := domain.NewRoutePlan()
	for i, v := range vehicles {
		seq := best.segments[i]
		res, err := evaluator.EvaluateSequence(seq, t0, matrix, deadlines)
		if err != nil {
			return nil, fmt.Errorf("brkga split: final eval: %w", err)
		}
		plan.Entries[v.ID] = &domain.RoutePlanEntry{
			VehicleID: v.ID,
			Sequence:  seq,
			Penalty:   res.Penalty,
			Duration:  res.Duration,
		}
	}
	return plan, nil
}

func splitCostLess(a, b *splitChromosome) bool {
	if a.feasible != b.feasible {
		return a.feasible
	}
	return a.fitness.Less(b.fitness)
}

func sortSplitPopulation(population []*splitChromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return splitCostLess(population[i], population[j])
	})
}

func giantTour(ids []string, keys []float64) []string {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
	tour := make([]string, len(ids))
	for i, idx := range order {
		tour[i] = ids[idx]
	}
	return tour
}

// splitDP implements §4.7's dynamic program: f(i,j) = min over split points
// a of f(a-1,j-1) + routeCost(π[a..i], vehicle_j), f(0,0)=0. Per-segment
// cost is precomputed with a rolling travel accumulator in O(n²), then the
// DP runs in O(n²M) using a prefix-sum array of delivery size to prune
// capacity-infeasible splits in O(1) (§4.7 design notes).
func splitDP(tour []string, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, sizeOf map[string]int) (evaluator.Cost, [][]string, bool, error) {
	n := len(tour)
	m := len(vehicles)

	prefixSize := make([]int, n+1)
	for i, id := range tour {
		prefixSize[i+1] = prefixSize[i] + sizeOf[id]
	}

	// segCost[a][i] = cost of routing tour[a:i+1] as one vehicle's route,
	// for 0 <= a <= i < n, built incrementally per start index a.
	segCost := make([][]evaluator.Cost, n)
	for a := 0; a < n; a++ {
		segCost[a] = make([]evaluator.Cost, n)
		cum := t0
		penalty := 0.0
		prevID := ""
		for i := a; i < n; i++ {
			leg, err := matrix.Travel(prevID, tour[i])
			if err != nil {
				return evaluator.Cost{}, nil, false, fmt.Errorf("split dp: %w", err)
			}
			cum += leg
			if lateness := cum - deadlines[tour[i]]; lateness > 0 {
				penalty += lateness
			}
			backLeg, err := matrix.Travel(tour[i], "")
			if err != nil {
				return evaluator.Cost{}, nil, false, fmt.Errorf("split dp: %w", err)
			}
			segCost[a][i] = evaluator.Cost{Penalty: penalty, Duration: cum + backLeg - t0}
			prevID = tour[i]
		}
	}

	// f[i][j], choice[i][j] for i in 0..n, j in 0..m.
	f := make([][]evaluator.Cost, n+1)
	choice := make([][]int, n+1)
	for i := range f {
		f[i] = make([]evaluator.Cost, m+1)
		choice[i] = make([]int, m+1)
		for j := range f[i] {
			f[i][j] = infiniteCost
			choice[i][j] = -1
		}
	}
	f[0][0] = evaluator.Cost{Penalty: 0, Duration: 0}

	for j := 1; j <= m; j++ {
		capJ := vehicles[j-1].Capacity
		for i := 1; i <= n; i++ {
			best := infiniteCost
			bestA := -1
			for a := 1; a <= i; a++ {
				segLoad := prefixSize[i] - prefixSize[a-1]
				if segLoad > capJ {
					continue
				}
				prior := f[a-1][j-1]
				if math.IsInf(prior.Penalty, 1) {
					continue
				}
				candidate := addCost(prior, segCost[a-1][i-1])
				if candidate.Less(best) {
					best = candidate
					bestA = a
				}
			}
			f[i][j] = best
			choice[i][j] = bestA
		}
	}

	bestM, bestCost := -1, infiniteCost
	for j := 1; j <= m; j++ {
		if f[n][j].Less(bestCost) {
			bestCost = f[n][j]
			bestM = j
		}
	}

	if bestM < 0 || math.IsInf(bestCost.Penalty, 1) {
		return infiniteCost, nil, false, nil
	}

	segments := make([][]string, m)
	for i := range segments {
		segments[i] = []string{}
	}

	i, j := n, bestM
	for j > 0 {
		a := choice[i][j]
		segments[j-1] = append([]string{}, tour[a-1:i]...)
		i, j = a-1, j-1
	}

	return bestCost, segments, true, nil
}

func evalSplitParallel(ctx context.Context, slots []*splitChromosome, fn func(i int) (*splitChromosome, error)) error {
	g, _ := errgroup.WithContext(ctx)
	for i := range slots {
		i := i
		g.Go(func() error {
			c, err := fn(i)
			if err != nil {
				return err
			}
			slots[i] = c
			return nil
		})
	}
	return g.Wait()
}
