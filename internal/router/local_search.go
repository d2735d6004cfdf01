package router

import (
	"fmt"

	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
)

// localSearch refines a decoded BRKGA sequence with, in fixed order, each
// repeated until no further improvement: 2-opt (segment reversal), Or-opt
// (relocate a length 1/2/3 segment), relocate (single-position move).
// Every candidate move is accepted iff it strictly reduces the lexicographic
// (penalty, duration) cost (§4.5).
func localSearch(seq []string, matrix *geo.Matrix, t0 float64, deadlines map[string]float64) ([]string, evaluator.Result, error) {
	current := seq
	result, err := evaluator.EvaluateSequence(current, t0, matrix, deadlines)
	if err != nil {
		return nil, evaluator.Result{}, fmt.Errorf("local search: %w", err)
	}

	for {
		next, nres, ok, err := twoOptPass(current, matrix, t0, deadlines, result.CostOf())
		if err != nil {
			return nil, evaluator.Result{}, err
		}
		if !ok {
			break
		}
		current, result = next, nres
	}

	for {
		next, nres, ok, err := orOptPass(current, matrix, t0, deadlines, result.CostOf())
		if err != nil {
			return nil, evaluator.Result{}, err
		}
		if !ok {
			break
		}
		current, result = next, nres
	}

	for {
		next, nres, ok, err := relocatePass(current, matrix, t0, deadlines, result.CostOf())
		if err != nil {
			return nil, evaluator.Result{}, err
		}
		if !ok {
			break
		}
		current, result = next, nres
	}

	return current, result, nil
}

// twoOptPass scans every segment reversal and applies the single best
// strict improvement found, if any.
func twoOptPass(seq []string, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, baseline evaluator.Cost) ([]string, evaluator.Result, bool, error) {
	n := len(seq)
	if n < 3 {
		return seq, evaluator.Result{}, false, nil
	}

	var bestSeq []string
	var bestRes evaluator.Result
	bestCost := baseline
	found := false

	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			candidate := reversed(seq, i, j)
			res, err := evaluator.EvaluateSequence(candidate, t0, matrix, deadlines)
			if err != nil {
				return nil, evaluator.Result{}, false, fmt.Errorf("2-opt: %w", err)
			}
			cost := res.CostOf()
			if cost.Less(bestCost) {
				bestCost = cost
				bestSeq = candidate
				bestRes = res
				found = true
			}
		}
	}

	return bestSeq, bestRes, found, nil
}

func reversed(seq []string, i, j int) []string {
	out := make([]string, len(seq))
	copy(out, seq)
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// orOptPass scans every relocation of a contiguous segment of length 1, 2,
// or 3 to every other insertion position, applying the single best strict
// improvement.
func orOptPass(seq []string, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, baseline evaluator.Cost) ([]string, evaluator.Result, bool, error) {
	n := len(seq)
	if n < 3 {
		return seq, evaluator.Result{}, false, nil
	}

	var bestSeq []string
	var bestRes evaluator.Result
	bestCost := baseline
	found := false

	for segLen := 1; segLen <= 3 && segLen < n; segLen++ {
		for start := 0; start+segLen <= n; start++ {
			rest := make([]string, 0, n-segLen)
			rest = append(rest, seq[:start]...)
			rest = append(rest, seq[start+segLen:]...)
			segment := seq[start : start+segLen]

			for pos := 0; pos <= len(rest); pos++ {
				candidate := make([]string, 0, n)
				candidate = append(candidate, rest[:pos]...)
				candidate = append(candidate, segment...)
				candidate = append(candidate, rest[pos:]...)

				res, err := evaluator.EvaluateSequence(candidate, t0, matrix, deadlines)
				if err != nil {
					return nil, evaluator.Result{}, false, fmt.Errorf("or-opt: %w", err)
				}
				cost := res.CostOf()
				if cost.Less(bestCost) {
					bestCost = cost
					bestSeq = candidate
					bestRes = res
					found = true
				}
			}
		}
	}

	return bestSeq, bestRes, found, nil
}

// relocatePass scans every single-delivery move to every other position,
// applying the single best strict improvement. This is Or-opt specialized
// to segment length 1, kept as its own pass because spec.md §4.5 names it
// as a distinct step in the fixed local-search order.
func relocatePass(seq []string, matrix *geo.Matrix, t0 float64, deadlines map[string]float64, baseline evaluator.Cost) ([]string, evaluator.Result, bool, error) {
	n := len(seq)
	if n < 2 {
		return seq, evaluator.Result{}, false, nil
	}

	var bestSeq []string
	var bestRes evaluator.Result
	bestCost := baseline
	found := false

	for from := 0; from < n; from++ {
		rest := make([]string, 0, n-1)
		rest = append(rest, seq[:from]...)
		rest = append(rest, seq[from+1:]...)
		moved := seq[from]

		for pos := 0; pos <= len(rest); pos++ {
			candidate := make([]string, 0, n)
			candidate = append(candidate, rest[:pos]...)
			candidate = append(candidate, moved)
			candidate = append(candidate, rest[pos:]...)

			res, err := evaluator.EvaluateSequence(candidate, t0, matrix, deadlines)
			if err != nil {
				return nil, evaluator.Result{}, false, fmt.Errorf("relocate: %w", err)
			}
			cost := res.CostOf()
			if cost.Less(bestCost) {
				bestCost = cost
				bestSeq = candidate
				bestRes = res
				found = true
			}
		}
	}

	return bestSeq, bestRes, found, nil
}
