// Package config parses the flat configuration surface of spec.md §6: a
// godotenv.Load + os.Getenv-with-fallbacks composition-root idiom,
// generalized from ad-hoc getEnv calls into one typed record, validated
// once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"meal-delivery-dispatch/internal/cluster"
	"meal-delivery-dispatch/internal/dispatch"
	"meal-delivery-dispatch/internal/router"
	"meal-delivery-dispatch/internal/simerrors"
)

// StrategyKind selects the selector branch (§4.10).
type StrategyKind string

const (
	TwoStage StrategyKind = "two_stage"
	Hybrid   StrategyKind = "hybrid"
)

// ClusteringAlgo is the two-stage clustering choice.
type ClusteringAlgo string

const (
	CKMeans          ClusteringAlgo = "ckmeans"
	GreedySequential ClusteringAlgo = "greedy_sequential"
)

// RoutingAlgo is the two-stage sequencing choice.
type RoutingAlgo string

const (
	BRKGARouting      RoutingAlgo = "brkga"
	CheapestInsertion RoutingAlgo = "cheapest_insertion"
)

// HybridAlgo is the hybrid-branch choice.
type HybridAlgo string

const (
	GreedyInsertionHybrid HybridAlgo = "greedy_insertion"
	BRKGASplitHybrid      HybridAlgo = "brkga_split"
)

// Config is the flat configuration record of §6.
type Config struct {
	StrategyKind            StrategyKind
	ClusteringAlgo          ClusteringAlgo
	RoutingAlgo             RoutingAlgo
	HybridAlgo              HybridAlgo
	DispatchPolicy          dispatch.Policy
	DecisionIntervalMinutes int
	BRKGA                   router.BRKGAConfig
	CKMeans                 cluster.Config
	OptimizerDeadline       time.Duration
}

// Default returns spec.md's default configuration (two-stage,
// CKMeans + BRKGA router, ASAP dispatch, 1-minute decision interval).
func Default() Config {
	return Config{
		StrategyKind:            TwoStage,
		ClusteringAlgo:          CKMeans,
		RoutingAlgo:             BRKGARouting,
		HybridAlgo:              BRKGASplitHybrid,
		DispatchPolicy:          dispatch.ASAP,
		DecisionIntervalMinutes: 1,
		BRKGA:                   router.DefaultBRKGAConfig(),
		CKMeans:                 cluster.DefaultConfig(),
		OptimizerDeadline:       5 * time.Second,
	}
}

// Load reads environment variables (optionally from a .env file via
// godotenv.Load) and validates the result. Any error is a
// ConfigurationError (§7), fatal at startup.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// No .env file found is not fatal, only logged by the caller.
			_ = err
		}
	}

	cfg := Default()

	if v := os.Getenv("STRATEGY_KIND"); v != "" {
		cfg.StrategyKind = StrategyKind(v)
	}
	if v := os.Getenv("CLUSTERING_ALGO"); v != "" {
		cfg.ClusteringAlgo = ClusteringAlgo(v)
	}
	if v := os.Getenv("ROUTING_ALGO"); v != "" {
		cfg.RoutingAlgo = RoutingAlgo(v)
	}
	if v := os.Getenv("HYBRID_ALGO"); v != "" {
		cfg.HybridAlgo = HybridAlgo(v)
	}
	if v := os.Getenv("DISPATCH_POLICY"); v != "" {
		cfg.DispatchPolicy = dispatch.Policy(v)
	}
	if v := os.Getenv("DECISION_INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, simerrors.NewConfigurationError("load config", fmt.Errorf("DECISION_INTERVAL_MINUTES: %w", err))
		}
		cfg.DecisionIntervalMinutes = n
	}
	if v := os.Getenv("BRKGA_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, simerrors.NewConfigurationError("load config", fmt.Errorf("BRKGA_SEED: %w", err))
		}
		cfg.BRKGA.Seed = n
	}
	if v := os.Getenv("OPTIMIZER_DEADLINE_S"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, simerrors.NewConfigurationError("load config", fmt.Errorf("OPTIMIZER_DEADLINE_S: %w", err))
		}
		cfg.OptimizerDeadline = time.Duration(f * float64(time.Second))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, simerrors.NewConfigurationError("load config", err)
	}
	return cfg, nil
}

// Validate enforces §6's enumeration and range constraints. Only the
// fields of the selected branch are checked: under two_stage, HybridAlgo is
// ignored, and under hybrid, ClusteringAlgo and RoutingAlgo are ignored.
func (c Config) Validate() error {
	switch c.StrategyKind {
	case TwoStage:
		switch c.ClusteringAlgo {
		case CKMeans, GreedySequential:
		default:
			return fmt.Errorf("unknown clustering_algo %q", c.ClusteringAlgo)
		}
		switch c.RoutingAlgo {
		case BRKGARouting, CheapestInsertion:
		default:
			return fmt.Errorf("unknown routing_algo %q", c.RoutingAlgo)
		}
	case Hybrid:
		switch c.HybridAlgo {
		case GreedyInsertionHybrid, BRKGASplitHybrid:
		default:
			return fmt.Errorf("unknown hybrid_algo %q", c.HybridAlgo)
		}
	default:
		return fmt.Errorf("unknown strategy_kind %q", c.StrategyKind)
	}

	switch c.DispatchPolicy {
	case dispatch.ASAP, dispatch.JIT:
	default:
		return fmt.Errorf("unknown dispatch_policy %q", c.DispatchPolicy)
	}

	if c.DecisionIntervalMinutes < 1 {
		return fmt.Errorf("decision_interval_minutes must be >= 1, got %d", c.DecisionIntervalMinutes)
	}
	if c.OptimizerDeadline <= 0 {
		return fmt.Errorf("optimizer_deadline_s must be positive")
	}
	if c.BRKGA.P < 1 || c.BRKGA.PE <= 0 || c.BRKGA.PM < 0 || c.BRKGA.PE+c.BRKGA.PM >= 1 {
		return fmt.Errorf("invalid brkga population fractions: p_e=%v p_m=%v", c.BRKGA.PE, c.BRKGA.PM)
	}
	if strings.TrimSpace(string(c.HybridAlgo)) == "" && c.StrategyKind == Hybrid {
		return fmt.Errorf("hybrid_algo is required when strategy_kind=hybrid")
	}

	return nil
}
