package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/nextmv-io/sdk/mip"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/simerrors"
)

// unassignedPenalty is the large per-delivery objective cost the capacitated
// assignment MIP pays to leave a delivery unassigned. It must dominate any
// achievable sum of Euclidean distances so the solver only drops a delivery
// when no vehicle has spare capacity for it.
const unassignedPenalty = 1e9

// Config controls the capacitated K-Means loop (§4.2).
type Config struct {
	MaxIters       int           // default 50
	Tol            float64       // default 1e-4
	SolverDeadline time.Duration // wall-clock budget handed to the MIP solver per iteration
}

// DefaultConfig returns spec.md's defaults.
func DefaultConfig() Config {
	return Config{MaxIters: 50, Tol: 1e-4, SolverDeadline: 2 * time.Second}
}

type centroid struct {
	point  domain.Point
	weight float64
}

// CapacitatedKMeans implements §4.2: iterate {assign-by-MIP,
// update-centroids} until centroids stabilize or MaxIters is reached.
// Returns a partial partition (some deliveries omitted) iff weighted demand
// exceeds total capacity. seed makes K-Means++ initialization deterministic.
func CapacitatedKMeans(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point, cfg Config, seed uint64) (Partition, error) {
	if len(vehicles) == 0 {
		return Partition{}, nil
	}
	if len(deliveries) == 0 {
		return make(Partition, len(vehicles)), nil
	}

	sorted := make([]*domain.Delivery, len(deliveries))
	copy(sorted, deliveries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	centroids := kmeansPlusPlus(sorted, len(vehicles), seed)

	var assignment []int // per-delivery vehicle index, or -1 if unassigned
	var err error

	for iter := 0; iter < cfg.MaxIters; iter++ {
		assignment, err = assignByMIP(sorted, vehicles, centroids, cfg.SolverDeadline)
		if err != nil {
			// SolverFailure: recovered locally by falling back to greedy
			// sequential assignment for this iteration (§7); never fatal.
			assignment = assignByGreedyFallback(sorted, vehicles, depot)
		}

		newCentroids, shift := updateCentroids(sorted, vehicles, assignment, centroids)
		centroids = newCentroids
		if shift < cfg.Tol {
			break
		}
	}

	partition := make(Partition, len(vehicles))
	for i, d := range sorted {
		vi := assignment[i]
		if vi < 0 {
			continue
		}
		partition[vehicles[vi].ID] = append(partition[vehicles[vi].ID], d)
	}
	return partition, nil
}

// kmeansPlusPlus seeds M centroids over the raw point set, ignoring
// capacities, using a deterministic PRNG stream derived from seed.
func kmeansPlusPlus(deliveries []*domain.Delivery, m int, seed uint64) []centroid {
	rng := rand.New(rand.NewPCG(seed, 0))

	centroids := make([]centroid, 0, m)
	first := deliveries[rng.IntN(len(deliveries))]
	centroids = append(centroids, centroid{point: first.Point})

	for len(centroids) < m {
		weights := make([]float64, len(deliveries))
		var total float64
		for i, d := range deliveries {
			best := math.Inf(1)
			for _, c := range centroids {
				if dd := sqDist(d.Point, c.point); dd < best {
					best = dd
				}
			}
			weights[i] = best
			total += best
		}

		if total == 0 {
			// All remaining points coincide with an existing centroid;
			// pick deterministically by id order.
			centroids = append(centroids, centroid{point: deliveries[len(centroids)%len(deliveries)].Point})
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := deliveries[len(deliveries)-1].Point
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = deliveries[i].Point
				break
			}
		}
		centroids = append(centroids, centroid{point: chosen})
	}

	return centroids
}

func sqDist(a, b domain.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}

// assignByMIP solves the capacitated assignment problem: minimize
// Σᵢⱼ d(pᵢ, cⱼ) · xᵢⱼ subject to Σⱼ xᵢⱼ ≤ 1, Σᵢ sizeᵢ · xᵢⱼ ≤ capⱼ. A large
// per-delivery unassigned-penalty keeps every delivery assigned unless
// capacity genuinely cannot hold it, which is what makes the returned
// partition "partial iff weighted demand exceeds total capacity" instead of
// simply infeasible.
func assignByMIP(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, centroids []centroid, deadline time.Duration) ([]int, error) {
	m := mip.NewModel()
	m.Objective().SetMinimize()

	n := len(deliveries)
	k := len(vehicles)

	x := make([][]mip.Bool, n)
	for i := range x {
		x[i] = make([]mip.Bool, k)
		for j := range x[i] {
			x[i][j] = m.NewBool()
		}
	}
	unassigned := make([]mip.Bool, n)
	for i := range unassigned {
		unassigned[i] = m.NewBool()
	}

	for i, d := range deliveries {
		c := m.NewConstraint(mip.Equal, 1.0)
		for j := range vehicles {
			c.NewTerm(1, x[i][j])
		}
		c.NewTerm(1, unassigned[i])

		m.Objective().NewTerm(unassignedPenalty, unassigned[i])
		for j, veh := range vehicles {
			_ = veh
			dist := math.Sqrt(sqDist(d.Point, centroids[j].point))
			m.Objective().NewTerm(dist, x[i][j])
		}
	}

	for j, veh := range vehicles {
		c := m.NewConstraint(mip.LessThanOrEqual, float64(veh.Capacity))
		for i, d := range deliveries {
			c.NewTerm(float64(d.Size), x[i][j])
		}
	}

	solver, err := mip.NewSolver("highs", m)
	if err != nil {
		return nil, simerrors.NewSolverFailure("ckmeans assign", err)
	}

	opts := mip.NewSolveOptions()
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	if err := opts.SetMaximumDuration(deadline); err != nil {
		return nil, simerrors.NewSolverFailure("ckmeans assign: set duration", err)
	}
	if err := opts.SetMIPGapRelative(0); err != nil {
		return nil, simerrors.NewSolverFailure("ckmeans assign: set gap", err)
	}
	opts.SetVerbosity(mip.Off)

	solution, err := solver.Solve(opts)
	if err != nil {
		return nil, simerrors.NewSolverFailure("ckmeans assign: solve", err)
	}
	if solution == nil || !solution.HasValues() {
		return nil, simerrors.NewSolverFailure("ckmeans assign", fmt.Errorf("solver returned no feasible solution"))
	}

	result := make([]int, n)
	for i := range deliveries {
		result[i] = -1
		for j := range vehicles {
			if solution.Value(x[i][j]) > 0.5 {
				result[i] = j
				break
			}
		}
	}
	return result, nil
}

// assignByGreedyFallback recovers from SolverFailure by delegating to the
// greedy sequential heuristic (§7), translated back into a per-delivery
// vehicle-index slice shaped like assignByMIP's result. depot must be the
// real depot: GreedySequential sorts by descending distance from it, so an
// arbitrary depot would produce a materially different ordering.
func assignByGreedyFallback(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point) []int {
	partition := GreedySequential(deliveries, vehicles, depot)

	vehicleIndex := make(map[int]int, len(vehicles))
	for i, v := range vehicles {
		vehicleIndex[v.ID] = i
	}

	result := make([]int, len(deliveries))
	for i := range result {
		result[i] = -1
	}
	deliveryIndex := make(map[string]int, len(deliveries))
	for i, d := range deliveries {
		deliveryIndex[d.ID] = i
	}
	for vehID, ds := range partition {
		for _, d := range ds {
			result[deliveryIndex[d.ID]] = vehicleIndex[vehID]
		}
	}
	return result
}

func updateCentroids(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, assignment []int, prev []centroid) ([]centroid, float64) {
	sums := make([]domain.Point, len(vehicles))
	weights := make([]float64, len(vehicles))

	for i, d := range deliveries {
		vi := assignment[i]
		if vi < 0 {
			continue
		}
		w := float64(d.Size)
		sums[vi].Lat += w * d.Point.Lat
		sums[vi].Lng += w * d.Point.Lng
		weights[vi] += w
	}

	next := make([]centroid, len(vehicles))
	var maxShift float64
	for j := range vehicles {
		if weights[j] == 0 {
			next[j] = prev[j]
			continue
		}
		p := domain.Point{Lat: sums[j].Lat / weights[j], Lng: sums[j].Lng / weights[j]}
		next[j] = centroid{point: p, weight: weights[j]}
		shift := math.Sqrt(sqDist(p, prev[j].point))
		if shift > maxShift {
			maxShift = shift
		}
	}
	return next, maxShift
}
