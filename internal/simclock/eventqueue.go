// Package simclock implements the discrete-event queue of §3/§4.9: a
// container/heap min-heap ordered by event time, with ties broken by a
// monotone insertion counter so that same-tick events always replay in
// the order they were scheduled, regardless of heap internals.
package simclock

import "container/heap"

// EventKind names the six event kinds of §3.
type EventKind string

const (
	OrderReceived    EventKind = "ORDER_RECEIVED"
	OrderReady       EventKind = "ORDER_READY"
	VehicleDepart    EventKind = "VEHICLE_DEPART"
	ExpectedDelivery EventKind = "EXPECTED_DELIVERY"
	VehicleReturn    EventKind = "VEHICLE_RETURN"
	DecisionTick     EventKind = "DECISION_TICK"
)

// Event is one entry on the simulation clock. Payload carries kind-specific
// data (a delivery id, a vehicle id, ...); callers type-assert it.
type Event struct {
	Time    float64 // simulation minutes since epoch
	Kind    EventKind
	Payload any

	seq int // insertion order, for stable tie-breaking
}

// eventPQ is the container/heap.Interface implementation, ordered by
// (Time, seq) so ties replay in push order.
type eventPQ []*Event

func (p eventPQ) Len() int { return len(p) }
func (p eventPQ) Less(i, j int) bool {
	if p[i].Time != p[j].Time {
		return p[i].Time < p[j].Time
	}
	return p[i].seq < p[j].seq
}
func (p eventPQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *eventPQ) Push(x any)   { *p = append(*p, x.(*Event)) }
func (p *eventPQ) Pop() any {
	old := *p
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return v
}

// Queue is a min-heap of Events ordered by (Time, insertion order).
type Queue struct {
	pq      eventPQ
	nextSeq int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.pq)
	return q
}

// Push schedules an event. Events at the same Time are popped in the order
// they were pushed.
func (q *Queue) Push(e Event) {
	e.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.pq, &e)
}

// Pop removes and returns the earliest-scheduled event. It panics if the
// queue is empty; callers must check Len first.
func (q *Queue) Pop() Event {
	return *heap.Pop(&q.pq).(*Event)
}

// Peek returns the earliest-scheduled event without removing it, and
// whether the queue is non-empty.
func (q *Queue) Peek() (Event, bool) {
	if len(q.pq) == 0 {
		return Event{}, false
	}
	return *q.pq[0], true
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.pq) }
