package router

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
)

// BRKGAConfig controls the biased random-key genetic algorithm (§4.5).
type BRKGAConfig struct {
	P      int     // population size, default 100
	PE     float64 // elite fraction, default 0.2
	PM     float64 // mutant fraction, default 0.15
	Rho    float64 // elite-inheritance probability, default 0.7
	G      int     // generation cap, default 100
	StallS int     // consecutive no-improvement generations before stopping, default 20
	Seed   uint64
}

// DefaultBRKGAConfig returns spec.md §4.5's defaults.
func DefaultBRKGAConfig() BRKGAConfig {
	return BRKGAConfig{P: 100, PE: 0.2, PM: 0.15, Rho: 0.7, G: 100, StallS: 20, Seed: 1}
}

type chromosome struct {
	keys []float64
	cost evaluator.Cost
	seq  []string
}

// chromosomeStream returns a deterministic, splittable PRNG stream for one
// chromosome within one generation, so population construction can be
// parallelized without losing §8.4 determinism (the stream is a pure
// function of seed/generation/index, never of goroutine scheduling order).
func chromosomeStream(seed uint64, generation, index int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(generation)*1_000_003+uint64(index)))
}

// decode sorts delivery ids by ascending key to produce a visit sequence.
func decode(ids []string, keys []float64) []string {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

	seq := make([]string, len(ids))
	for i, idx := range order {
		seq[i] = ids[idx]
	}
	return seq
}

// BRKGA implements §4.5: evolve a population of random-key chromosomes
// decoded into visit sequences, evaluated via the shared evaluator, then
// refine the best decoded sequence with local search. A caller-supplied
// seed reproduces the exact output (§8.4).
func BRKGA(ctx context.Context, cluster []*domain.Delivery, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, cfg BRKGAConfig) ([]string, evaluator.Result, error) {
	if len(cluster) == 0 {
		return nil, evaluator.Result{Arrivals: map[string]float64{}}, nil
	}
	if len(cluster) == 1 {
		seq := []string{cluster[0].ID}
		res, err := evaluator.EvaluateSequence(seq, t0, matrix, deadlines)
		return seq, res, err
	}

	ids := make([]string, len(cluster))
	for i, d := range cluster {
		ids[i] = d.ID
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

	population := make([]*chromosome, cfg.P)
	if err := evalParallel(ctx, population, func(i int) (*chromosome, error) {
		rng := chromosomeStream(cfg.Seed, 0, i)
		keys := randomKeys(rng, n)
		return decodeAndScore(ids, keys, matrix, t0, deadlines)
	}); err != nil {
		return nil, evaluator.Result{}, fmt.Errorf("brkga: initial population: %w", err)
	}

	sortPopulation(population)

	var best *chromosome = population[0]
	stall := 0

	for gen := 1; gen <= cfg.G && stall < cfg.StallS; gen++ {
		select {
		case <-ctx.Done():
			gen = cfg.G + 1 // soft deadline: stop evolving, return best-so-far (§5)
			continue
		default:
		}

		elites := population[:eliteCount]
		next := make([]*chromosome, cfg.P)
		copy(next[:eliteCount], elites)

		nonElite := population[eliteCount:]

		err := evalParallel(ctx, next[eliteCount:], func(offset int) (*chromosome, error) {
			i := eliteCount + offset
			rng := chromosomeStream(cfg.Seed, gen, i)
			if i >= cfg.P-mutantCount {
				// Mutant: fresh random keys.
				keys := randomKeys(rng, n)
				return decodeAndScore(ids, keys, matrix, t0, deadlines)
			}
			// Crossover child: one elite parent, one non-elite parent,
			// each key inherited from the elite parent w.p. rho.
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
			return decodeAndScore(ids, keys, matrix, t0, deadlines)
		})
		if err != nil {
			return nil, evaluator.Result{}, fmt.Errorf("brkga: generation %d: %w", gen, err)
		}

		population = next
		sortPopulation(population)

		if population[0].cost.Less(best.cost) {
			best = population[0]
			stall = 0
		} else {
			stall++
		}
	}

	seq, res, err := localSearch(best.seq, matrix, t0, deadlines)
	if err != nil {
		return nil, evaluator.Result{}, fmt.Errorf("brkga: local search: %w", err)
	}
	return seq, res, nil
}

func randomKeys(rng *rand.Rand, n int) []float64 {
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = rng.Float64()
	}
	return keys
}

func decodeAndScore(ids []string, keys []float64, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) (*chromosome, error) {
	seq := decode(ids, keys)
	res, err := evaluator.EvaluateSequence(seq, t0, matrix, deadlines)
	if err != nil {
		return nil, err
	}
	return &chromosome{keys: keys, cost: res.CostOf(), seq: seq}, nil
}

// sortPopulation sorts by (cost, chromosome_index) so deterministic elite
// selection holds regardless of how fitness evaluation was parallelized (§5).
func sortPopulation(population []*chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].cost.Less(population[j].cost)
	})
}

// evalParallel evaluates slots[i] = fn(i) concurrently via a worker pool,
// writing results in place. Safe because fn is pure (§4.1/§5 guarantee) and
// reads only its own index's chromosome state.
func evalParallel(ctx context.Context, slots []*chromosome, fn func(i int) (*chromosome, error)) error {
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
