package sim

import "sync"

// Monitor aggregates the simulation-wide counters a driver reports after
// every decision tick: how many deliveries finished, how many finished
// late, the running penalty and on-road totals, and how many times a tick
// had to leave deliveries unassigned. It is safe for concurrent reads
// (exposed over the API layer) while the driver is the sole writer.
type Monitor struct {
	mu sync.RWMutex

	delivered       int
	late            int
	totalPenalty    float64
	totalOnRoadMins float64
	infeasibleTicks int
	decisionTicks   int
}

// NewMonitor returns a zeroed Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// RecordDelivery is called once a delivery's EXPECTED_DELIVERY event fires.
// lateness is the arrival time minus the deadline, in minutes; non-positive
// means on time.
func (m *Monitor) RecordDelivery(lateness float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
	if lateness > 0 {
		m.late++
	}
}

// RecordPlan folds one decision tick's outcome into the running totals.
func (m *Monitor) RecordPlan(penalty, onRoadMinutes float64, infeasible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionTicks++
	m.totalPenalty += penalty
	m.totalOnRoadMins += onRoadMinutes
	if infeasible {
		m.infeasibleTicks++
	}
}

// Snapshot is a point-in-time, immutable copy of the aggregate counters,
// safe to serialize over the API layer.
type Snapshot struct {
	Delivered       int     `json:"delivered"`
	Late            int     `json:"late"`
	TotalPenalty    float64 `json:"total_penalty_minutes"`
	TotalOnRoadMins float64 `json:"total_on_road_minutes"`
	InfeasibleTicks int     `json:"infeasible_ticks"`
	DecisionTicks   int     `json:"decision_ticks"`
}

// Snapshot returns the current aggregate counters.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Delivered:       m.delivered,
		Late:            m.late,
		TotalPenalty:    m.totalPenalty,
		TotalOnRoadMins: m.totalOnRoadMins,
		InfeasibleTicks: m.infeasibleTicks,
		DecisionTicks:   m.decisionTicks,
	}
}
