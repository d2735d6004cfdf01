// Package sim implements the discrete-event simulation driver of §4.9: a
// single-threaded event loop over internal/simclock's min-heap, invoking
// the configured strategy (internal/strategy) at every DECISION_TICK and
// applying the chosen dispatch policy (internal/dispatch) to the result.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"meal-delivery-dispatch/internal/config"
	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/dispatch"
	"meal-delivery-dispatch/internal/evaluator"
	"meal-delivery-dispatch/internal/geo"
	"meal-delivery-dispatch/internal/platform/obs"
	"meal-delivery-dispatch/internal/simclock"
	"meal-delivery-dispatch/internal/simerrors"
	"meal-delivery-dispatch/internal/strategy"
)

// departPayload carries the committed route from decision time through to
// the moment the VEHICLE_DEPART event actually fires.
type departPayload struct {
	VehicleID int
	Route     []string
	EndTime   time.Time
}

// Driver owns the simulation clock, the fleet, the ready pool, and the
// selected optimization strategy. It is not safe for concurrent use: the
// event loop is cooperative and single-threaded (§5), matching the
// concurrency model the core algorithms themselves assume.
type Driver struct {
	cfg   config.Config
	sel   strategy.Selection
	depot domain.Point

	minutesPerUnit float64
	epoch          time.Time
	now            float64 // simulation minutes since epoch

	queue      *simclock.Queue
	vehicles   map[int]*domain.Vehicle
	deliveries map[string]*domain.Delivery

	monitor       *Monitor
	decisionCount uint64

	// OnDecision, when set, is invoked after every decision tick that
	// produced a plan (including empty/infeasible ones), for the API
	// layer's routes_update broadcast (§6).
	OnDecision func(DecisionSummary)
}

// DecisionSummary is what OnDecision receives after each decision tick that
// produced a plan; ticks with no ready delivery or no idle vehicle produce
// none.
type DecisionSummary struct {
	Now        time.Time
	Plan       map[int][]string
	Penalty    float64
	OnRoad     float64
	Infeasible bool
}

// NewDriver constructs a Driver and schedules the first DECISION_TICK.
// epoch is simulation minute zero's wall-clock instant; minutesPerUnit
// converts the depot/delivery coordinate units into travel minutes, as in
// geo.Build.
func NewDriver(cfg config.Config, sel strategy.Selection, depot domain.Point, minutesPerUnit float64, epoch time.Time) *Driver {
	d := &Driver{
		cfg:            cfg,
		sel:            sel,
		depot:          depot,
		minutesPerUnit: minutesPerUnit,
		epoch:          epoch,
		queue:          simclock.NewQueue(),
		vehicles:       make(map[int]*domain.Vehicle),
		deliveries:     make(map[string]*domain.Delivery),
		monitor:        NewMonitor(),
	}
	d.queue.Push(simclock.Event{Time: float64(cfg.DecisionIntervalMinutes), Kind: simclock.DecisionTick})
	return d
}

// Monitor exposes the running aggregate counters.
func (d *Driver) Monitor() *Monitor { return d.monitor }

// Now returns the current simulation clock as a wall-clock instant.
func (d *Driver) Now() time.Time { return d.wallTime(d.now) }

func (d *Driver) mins(t time.Time) float64   { return t.Sub(d.epoch).Minutes() }
func (d *Driver) wallTime(m float64) time.Time { return d.epoch.Add(time.Duration(m * float64(time.Minute))) }

// RegisterVehicle adds an idle vehicle to the fleet. The vehicle must not
// already be registered.
func (d *Driver) RegisterVehicle(v *domain.Vehicle) error {
	if _, exists := d.vehicles[v.ID]; exists {
		return simerrors.NewInvariantViolation("register vehicle", fmt.Errorf("vehicle %d already registered", v.ID))
	}
	if v.Status != domain.Idle {
		return simerrors.NewInvariantViolation("register vehicle", fmt.Errorf("vehicle %d must start IDLE", v.ID))
	}
	d.vehicles[v.ID] = v
	return nil
}

// SubmitOrder admits a new order. It must be PENDING; ReceiptTime is set to
// the driver's current clock (§6 — submit_order has no receipt_time
// parameter, the caller cannot backdate or postdate an order), and the
// driver schedules its ORDER_RECEIVED and ORDER_READY events from
// ReceiptTime/ReadyAt.
func (d *Driver) SubmitOrder(del *domain.Delivery) error {
	if _, exists := d.deliveries[del.ID]; exists {
		return simerrors.NewInvariantViolation("submit order", fmt.Errorf("delivery %s already submitted", del.ID))
	}
	if del.Status != domain.Pending {
		return simerrors.NewInvariantViolation("submit order", fmt.Errorf("delivery %s must start PENDING", del.ID))
	}
	del.ReceiptTime = d.Now()
	d.deliveries[del.ID] = del
	d.queue.Push(simclock.Event{Time: d.mins(del.ReceiptTime), Kind: simclock.OrderReceived, Payload: del.ID})
	d.queue.Push(simclock.Event{Time: d.mins(del.ReadyAt()), Kind: simclock.OrderReady, Payload: del.ID})
	return nil
}

// AdvanceTime drains every event up to and including `to`, then advances the
// clock to `to` even if no event lands exactly there.
func (d *Driver) AdvanceTime(to time.Time) error {
	target := d.mins(to)
	for {
		e, ok := d.queue.Peek()
		if !ok || e.Time > target {
			break
		}
		e = d.queue.Pop()
		d.now = e.Time
		if err := d.dispatchEvent(e); err != nil {
			return err
		}
	}
	if target > d.now {
		d.now = target
	}
	return nil
}

func (d *Driver) dispatchEvent(e simclock.Event) error {
	switch e.Kind {
	case simclock.OrderReceived:
		return nil

	case simclock.OrderReady:
		id := e.Payload.(string)
		del, ok := d.deliveries[id]
		if !ok {
			return simerrors.NewInvariantViolation("order ready", fmt.Errorf("unknown delivery %s", id))
		}
		if err := del.Advance(domain.Ready); err != nil {
			return simerrors.NewInvariantViolation("order ready", err)
		}
		return nil

	case simclock.DecisionTick:
		if err := d.TriggerDecision(); err != nil {
			return err
		}
		d.queue.Push(simclock.Event{
			Time: d.now + float64(d.cfg.DecisionIntervalMinutes),
			Kind: simclock.DecisionTick,
		})
		return nil

	case simclock.VehicleDepart:
		p := e.Payload.(departPayload)
		v, ok := d.vehicles[p.VehicleID]
		if !ok {
			return simerrors.NewInvariantViolation("vehicle depart", fmt.Errorf("unknown vehicle %d", p.VehicleID))
		}
		if err := v.Depart(p.Route, p.EndTime); err != nil {
			return simerrors.NewInvariantViolation("vehicle depart", err)
		}
		return nil

	case simclock.ExpectedDelivery:
		id := e.Payload.(string)
		del, ok := d.deliveries[id]
		if !ok {
			return simerrors.NewInvariantViolation("expected delivery", fmt.Errorf("unknown delivery %s", id))
		}
		if err := del.Advance(domain.Delivered); err != nil {
			return simerrors.NewInvariantViolation("expected delivery", err)
		}
		lateness := d.wallTime(e.Time).Sub(del.Deadline()).Minutes()
		d.monitor.RecordDelivery(lateness)
		return nil

	case simclock.VehicleReturn:
		id := e.Payload.(int)
		v, ok := d.vehicles[id]
		if !ok {
			return simerrors.NewInvariantViolation("vehicle return", fmt.Errorf("unknown vehicle %d", id))
		}
		if err := v.Return(); err != nil {
			return simerrors.NewInvariantViolation("vehicle return", err)
		}
		return nil

	default:
		return simerrors.NewInvariantViolation("dispatch event", fmt.Errorf("unknown event kind %q", e.Kind))
	}
}

// TriggerDecision runs one decision: partition/sequence the ready pool
// across idle vehicles, apply the dispatch policy, commit the resulting
// plan, and schedule the follow-up VEHICLE_DEPART/EXPECTED_DELIVERY/
// VEHICLE_RETURN events. Called both from the periodic DECISION_TICK event
// and on demand (the API layer's trigger_decision operation, §4.9).
func (d *Driver) TriggerDecision() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.OptimizerDeadline)
	defer cancel()
	d.decisionCount++
	decisionID := fmt.Sprintf("tick-%d", d.decisionCount)
	ctx = context.WithValue(ctx, obs.DecisionIDKey, decisionID)
	defer obs.Time(ctx, "sim.TriggerDecision")(&err)

	nowWall := d.wallTime(d.now)
	nextTickWall := d.wallTime(d.now + float64(d.cfg.DecisionIntervalMinutes))

	ready := d.readyDeliveries()
	idle := d.idleVehicles()
	if len(ready) == 0 || len(idle) == 0 {
		return nil
	}

	matrix := geo.Build(d.depot, ready, d.minutesPerUnit)
	deadlinesRel := make(map[string]float64, len(ready))
	deadlinesWall := make(map[string]time.Time, len(ready))
	for _, del := range ready {
		deadlinesWall[del.ID] = del.Deadline()
		deadlinesRel[del.ID] = del.Deadline().Sub(nowWall).Minutes()
	}

	plan, infeasible, err := d.solve(ctx, ready, idle, matrix, deadlinesRel)
	if err != nil {
		return err
	}

	if err := dispatch.Apply(d.cfg.DispatchPolicy, plan, matrix, nowWall, nextTickWall, deadlinesWall); err != nil {
		return fmt.Errorf("trigger decision: apply dispatch policy: %w", err)
	}

	penalty, onRoad := d.commitPlan(plan, matrix, nowWall, deadlinesRel)
	d.monitor.RecordPlan(penalty, onRoad, infeasible)

	if d.OnDecision != nil {
		routes := make(map[int][]string, len(plan.Entries))
		for vehID, entry := range plan.Entries {
			routes[vehID] = entry.Sequence
		}
		d.OnDecision(DecisionSummary{Now: nowWall, Plan: routes, Penalty: penalty, OnRoad: onRoad, Infeasible: infeasible})
	}
	return nil
}

// solve runs the configured strategy and returns (plan, had-infeasible-
// tick, error). InfeasibleAssignment is non-fatal: deliveries that could
// not be placed simply remain READY for the next tick (§7).
func (d *Driver) solve(ctx context.Context, ready []*domain.Delivery, idle []*domain.Vehicle, matrix *geo.Matrix, deadlinesRel map[string]float64) (*domain.RoutePlan, bool, error) {
	seed := d.cfg.BRKGA.Seed*1_000_003 + d.decisionCount

	switch d.sel.Kind {
	case config.TwoStage:
		partition, err := d.sel.Cluster(ready, idle, d.depot, seed)
		if err != nil {
			return nil, false, fmt.Errorf("trigger decision: cluster: %w", err)
		}
		plan := domain.NewRoutePlan()
		for _, v := range idle {
			cluster := partition[v.ID]
			seq, res, err := d.sel.Route(ctx, cluster, matrix, 0, deadlinesRel)
			if err != nil {
				return nil, false, fmt.Errorf("trigger decision: route vehicle %d: %w", v.ID, err)
			}
			plan.Entries[v.ID] = &domain.RoutePlanEntry{VehicleID: v.ID, Sequence: seq, Penalty: res.Penalty, Duration: res.Duration}
		}
		return plan, len(partition.Unassigned(ready)) > 0, nil

	case config.Hybrid:
		plan, unassigned, err := d.sel.Solve(ctx, ready, idle, matrix, 0, deadlinesRel)
		if err != nil {
			var infeasible *simerrors.InfeasibleAssignment
			if errors.As(err, &infeasible) {
				return domain.NewRoutePlan(), true, nil
			}
			return nil, false, fmt.Errorf("trigger decision: solve: %w", err)
		}
		return plan, len(unassigned) > 0, nil

	default:
		return nil, false, simerrors.NewConfigurationError("trigger decision", fmt.Errorf("unknown strategy kind %q", d.sel.Kind))
	}
}

// commitPlan advances every dispatched delivery's status, schedules its
// follow-up events, and returns the tick's total penalty/on-road minutes.
func (d *Driver) commitPlan(plan *domain.RoutePlan, matrix *geo.Matrix, nowWall time.Time, deadlinesRel map[string]float64) (penalty, onRoad float64) {
	for vehID, entry := range plan.Entries {
		if len(entry.Sequence) == 0 {
			continue
		}
		if _, ok := d.vehicles[vehID]; !ok {
			log.Printf("commit plan: unknown vehicle %d, dropping entry", vehID)
			continue
		}

		res, err := evaluator.EvaluateSequence(entry.Sequence, 0, matrix, deadlinesRel)
		if err != nil {
			log.Printf("commit plan: vehicle %d: re-evaluate: %v", vehID, err)
			continue
		}

		for _, id := range entry.Sequence {
			del, ok := d.deliveries[id]
			if !ok {
				continue
			}
			if err := del.Advance(domain.Dispatched); err != nil {
				log.Printf("commit plan: vehicle %d: %v", vehID, err)
			}
		}

		endTime := entry.DepartAt.Add(time.Duration(entry.Duration * float64(time.Minute)))
		d.queue.Push(simclock.Event{
			Time:    d.mins(entry.DepartAt),
			Kind:    simclock.VehicleDepart,
			Payload: departPayload{VehicleID: vehID, Route: entry.Sequence, EndTime: endTime},
		})
		for _, id := range entry.Sequence {
			arrival := res.Arrivals[id]
			arrivalWall := entry.DepartAt.Add(time.Duration(arrival * float64(time.Minute)))
			d.queue.Push(simclock.Event{Time: d.mins(arrivalWall), Kind: simclock.ExpectedDelivery, Payload: id})
		}
		d.queue.Push(simclock.Event{Time: d.mins(endTime), Kind: simclock.VehicleReturn, Payload: vehID})

		penalty += entry.Penalty
		onRoad += entry.Duration
	}
	return penalty, onRoad
}

func (d *Driver) readyDeliveries() []*domain.Delivery {
	var out []*domain.Delivery
	for _, del := range d.deliveries {
		if del.Status == domain.Ready {
			out = append(out, del)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Driver) idleVehicles() []*domain.Vehicle {
	var out []*domain.Vehicle
	for _, v := range d.vehicles {
		if v.Status == domain.Idle {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
