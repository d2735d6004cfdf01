// Package dispatch implements the two departure-time policies of §4.8.
package dispatch

import (
	"math"
	"time"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
)

// Policy selects how a planned route's departure time is derived from the
// current clock.
type Policy string

const (
	ASAP Policy = "asap"
	JIT  Policy = "jit"
)

// DepartureTime returns the wall-clock departure time for one vehicle's
// planned sequence under the configured policy. now is the decision-tick
// time; nextTick is the next scheduled decision tick (used to bound JIT's
// delay so it never looks further ahead than the next opportunity to
// re-plan). deadlines are per-delivery absolute deadlines.
func DepartureTime(policy Policy, sequence []string, now, nextTick time.Time, matrix *geo.Matrix, deadlines map[string]time.Time) (time.Time, error) {
	if policy != JIT || len(sequence) == 0 {
		return now, nil
	}

	relDeadlines := make(map[string]float64, len(deadlines))
	for id, dl := range deadlines {
		relDeadlines[id] = dl.Sub(now).Minutes()
	}

	res, err := evaluator.EvaluateSequence(sequence, 0, matrix, relDeadlines)
	if err != nil {
		return now, err
	}

	slack := math.Inf(1)
	for _, id := range sequence {
		s := relDeadlines[id] - res.Arrivals[id]
		if s < slack {
			slack = s
		}
	}

	if slack <= 0 {
		return now, nil
	}

	maxDelay := nextTick.Sub(now).Minutes()
	delay := slack
	if delay > maxDelay {
		delay = maxDelay
	}
	if delay <= 0 {
		return now, nil
	}

	return now.Add(time.Duration(delay * float64(time.Minute))), nil
}

// Apply is a convenience wrapper that fills in per-vehicle departure times
// across an entire plan, mutating each entry's DepartAt in place.
func Apply(policy Policy, plan *domain.RoutePlan, matrix *geo.Matrix, now, nextTick time.Time, deadlines map[string]time.Time) error {
	for _, entry := range plan.Entries {
		dep, err := DepartureTime(policy, entry.Sequence, now, nextTick, matrix, deadlines)
		if err != nil {
			return err
		}
		entry.DepartAt = dep
	}
	return nil
}
