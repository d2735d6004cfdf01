// Package strategy implements §4.10's selector: a tagged configuration
// collapses cleanly to three method signatures (cluster, route, solve)
// without an inheritance hierarchy. The selector is constructed once at
// startup from a Config; no hot-swap.
package strategy

import (
	"context"
	"fmt"

	"meal-delivery-dispatch/internal/cluster"
	"meal-delivery-dispatch/internal/config"
	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
	"meal-delivery-dispatch/internal/hybrid"
	"meal-delivery-dispatch/internal/router"
	"meal-delivery-dispatch/internal/simerrors"
)

// ClusterFunc partitions ready deliveries across idle vehicles.
type ClusterFunc func(ready []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point, seed uint64) (cluster.Partition, error)

// RouteFunc sequences one cluster's deliveries into a single vehicle's
// visit order.
type RouteFunc func(ctx context.Context, segment []*domain.Delivery, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) ([]string, evaluator.Result, error)

// SolveFunc fuses clustering and sequencing into one global plan.
type SolveFunc func(ctx context.Context, ready []*domain.Delivery, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) (*domain.RoutePlan, []*domain.Delivery, error)

// Selection is either a (cluster, route) pair or a single solve function,
// never both.
type Selection struct {
	Kind    config.StrategyKind
	Cluster ClusterFunc
	Route   RouteFunc
	Solve   SolveFunc
}

// Select constructs the Selection named by cfg. This is the only place the
// strategy tag is interpreted; everything downstream only sees function
// values.
func Select(cfg config.Config) (Selection, error) {
	switch cfg.StrategyKind {
	case config.TwoStage:
		return selectTwoStage(cfg)
	case config.Hybrid:
		return selectHybrid(cfg)
	default:
		return Selection{}, simerrors.NewConfigurationError("select strategy", fmt.Errorf("unknown strategy_kind %q", cfg.StrategyKind))
	}
}

func selectTwoStage(cfg config.Config) (Selection, error) {
	var clusterFn ClusterFunc
	switch cfg.ClusteringAlgo {
	case config.CKMeans:
		clusterFn = func(ready []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point, seed uint64) (cluster.Partition, error) {
			return cluster.CapacitatedKMeans(ready, vehicles, depot, cfg.CKMeans, seed)
		}
	case config.GreedySequential:
		clusterFn = func(ready []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point, seed uint64) (cluster.Partition, error) {
			return cluster.GreedySequential(ready, vehicles, depot), nil
		}
	default:
		return Selection{}, simerrors.NewConfigurationError("select strategy", fmt.Errorf("unknown clustering_algo %q", cfg.ClusteringAlgo))
	}

	var routeFn RouteFunc
	switch cfg.RoutingAlgo {
	case config.BRKGARouting:
		routeFn = func(ctx context.Context, segment []*domain.Delivery, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) ([]string, evaluator.Result, error) {
			return router.BRKGA(ctx, segment, matrix, t0, deadlines, cfg.BRKGA)
		}
	case config.CheapestInsertion:
		routeFn = func(ctx context.Context, segment []*domain.Delivery, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) ([]string, evaluator.Result, error) {
			return router.CheapestInsertion(segment, matrix, t0, deadlines)
		}
	default:
		return Selection{}, simerrors.NewConfigurationError("select strategy", fmt.Errorf("unknown routing_algo %q", cfg.RoutingAlgo))
	}

	return Selection{Kind: config.TwoStage, Cluster: clusterFn, Route: routeFn}, nil
}

func selectHybrid(cfg config.Config) (Selection, error) {
	var solveFn SolveFunc
	switch cfg.HybridAlgo {
	case config.GreedyInsertionHybrid:
		solveFn = func(ctx context.Context, ready []*domain.Delivery, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) (*domain.RoutePlan, []*domain.Delivery, error) {
			return hybrid.GlobalCheapestInsertion(ready, vehicles, matrix, t0, deadlines)
		}
	case config.BRKGASplitHybrid:
		hcfg := hybrid.BRKGAConfig{P: cfg.BRKGA.P, PE: cfg.BRKGA.PE, PM: cfg.BRKGA.PM, Rho: cfg.BRKGA.Rho, G: cfg.BRKGA.G, StallS: cfg.BRKGA.StallS, Seed: cfg.BRKGA.Seed}
		solveFn = func(ctx context.Context, ready []*domain.Delivery, vehicles []*domain.Vehicle, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) (*domain.RoutePlan, []*domain.Delivery, error) {
			plan, err := hybrid.BRKGASplit(ctx, ready, vehicles, matrix, t0, deadlines, hcfg)
			if err != nil {
				var infeasible *simerrors.InfeasibleAssignment
				if asInfeasible(err, &infeasible) {
					return domain.NewRoutePlan(), ready, err
				}
				return nil, nil, err
			}
			return plan, nil, nil
		}
	default:
		return Selection{}, simerrors.NewConfigurationError("select strategy", fmt.Errorf("unknown hybrid_algo %q", cfg.HybridAlgo))
	}

	return Selection{Kind: config.Hybrid, Solve: solveFn}, nil
}

func asInfeasible(err error, target **simerrors.InfeasibleAssignment) bool {
	ia, ok := err.(*simerrors.InfeasibleAssignment)
	if ok {
		*target = ia
	}
	return ok
}
