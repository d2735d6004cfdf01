// Package evaluator implements evaluate_sequence (§4.1), the single cost
// function every optimizer in the core must call so their costs stay
// comparable. It is pure and deterministic: same sequence, start time,
// matrix and deadlines in, same (penalty, duration, arrivals) out.
package evaluator

import (
	"fmt"

	"meal-delivery-dispatch/internal/geo"
)

// Result is the output of evaluating one vehicle's visit sequence.
type Result struct {
	Penalty  float64            // total lateness minutes, summed over stops
	Duration float64            // total on-road minutes, depot to depot
	Arrivals map[string]float64 // delivery id -> arrival time, minutes relative to t0's reference
}

// Cost is the lexicographic (penalty, duration) comparator every optimizer
// must use to rank candidate solutions.
type Cost struct {
	Penalty  float64
	Duration float64
}

// Less reports whether c is strictly better than other: lower penalty wins,
// duration breaks ties.
func (c Cost) Less(other Cost) bool {
	if c.Penalty != other.Penalty {
		return c.Penalty < other.Penalty
	}
	return c.Duration < other.Duration
}

// CostOf extracts the lexicographic cost from a Result.
func (r Result) CostOf() Cost {
	return Cost{Penalty: r.Penalty, Duration: r.Duration}
}

// EvaluateSequence walks the visit sequence depot -> s[0] -> s[1] -> ... ->
// s[k-1] -> depot, accumulating arrival times and lateness against
// deadlines (minutes, relative to the same reference as t0). All optimizers
// convert wall-clock to minutes relative to the decision-tick time before
// calling this; back-conversion to wall-clock happens only at result
// boundaries (§4.1).
func EvaluateSequence(seq []string, t0 float64, matrix *geo.Matrix, deadlines map[string]float64) (Result, error) {
	if len(seq) == 0 {
		return Result{Arrivals: map[string]float64{}}, nil
	}

	t := t0
	arrivals := make(map[string]float64, len(seq))
	penalty := 0.0

	prev := "" // depot
	for _, id := range seq {
		leg, err := matrix.Travel(prev, id)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate sequence: %w", err)
		}
		t += leg
		arrivals[id] = t

		deadline, ok := deadlines[id]
		if !ok {
			return Result{}, fmt.Errorf("evaluate sequence: missing deadline for delivery %q", id)
		}
		if lateness := t - deadline; lateness > 0 {
			penalty += lateness
		}

		prev = id
	}

	backLeg, err := matrix.Travel(prev, "")
	if err != nil {
		return Result{}, fmt.Errorf("evaluate sequence: return leg: %w", err)
	}
	t += backLeg

	return Result{
		Penalty:  penalty,
		Duration: t - t0,
		Arrivals: arrivals,
	}, nil
}
