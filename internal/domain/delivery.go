package domain

import (
	"fmt"
	"time"
)

// DeliveryStatus is the lifecycle state of a Delivery. Transitions are
// monotone: PENDING -> READY -> DISPATCHED -> DELIVERED.
type DeliveryStatus string

const (
	Pending    DeliveryStatus = "PENDING"
	Ready      DeliveryStatus = "READY"
	Dispatched DeliveryStatus = "DISPATCHED"
	Delivered  DeliveryStatus = "DELIVERED"
)

// Delivery represents one order. Fields other than Status are immutable
// after construction.
type Delivery struct {
	ID                 string
	Point              Point
	Size               int
	PreparationMinutes int
	ServiceMinutes     int
	ReceiptTime        time.Time
	Status             DeliveryStatus
}

// Deadline is ReceiptTime + ServiceMinutes.
func (d *Delivery) Deadline() time.Time {
	return d.ReceiptTime.Add(time.Duration(d.ServiceMinutes) * time.Minute)
}

// ReadyAt is the moment the order becomes READY.
func (d *Delivery) ReadyAt() time.Time {
	return d.ReceiptTime.Add(time.Duration(d.PreparationMinutes) * time.Minute)
}

var validTransitions = map[DeliveryStatus]DeliveryStatus{
	Pending:    Ready,
	Ready:      Dispatched,
	Dispatched: Delivered,
}

// Advance moves the delivery to the next status in its lifecycle. It
// returns an InvariantViolation-shaped error if the transition is not the
// single legal next step — status transitions must be monotone (§3).
func (d *Delivery) Advance(to DeliveryStatus) error {
	want, ok := validTransitions[d.Status]
	if !ok || want != to {
		return fmt.Errorf("advance delivery %s: illegal transition %s -> %s", d.ID, d.Status, to)
	}
	d.Status = to
	return nil
}
