package domain

import (
	"fmt"
	"time"
)

// VehicleStatus is the operational state of a Vehicle.
type VehicleStatus string

const (
	Idle    VehicleStatus = "IDLE"
	OnRoute VehicleStatus = "ON_ROUTE"
)

// Vehicle is a dispatch unit departing from and returning to the depot.
// The depot itself is never stored in CurrentRoute.
type Vehicle struct {
	ID           int
	Capacity     int
	Status       VehicleStatus
	CurrentRoute []string
	RouteEndTime *time.Time
}

// Load returns the current committed load (sum of delivery sizes) given a
// lookup of delivery id -> size. The caller supplies the lookup because the
// vehicle itself does not own delivery records.
func (v *Vehicle) Load(sizeOf map[string]int) int {
	total := 0
	for _, id := range v.CurrentRoute {
		total += sizeOf[id]
	}
	return total
}

// Depart commits a route and moves the vehicle to ON_ROUTE.
func (v *Vehicle) Depart(route []string, endTime time.Time) error {
	if v.Status != Idle {
		return fmt.Errorf("depart vehicle %d: vehicle is not IDLE (status=%s)", v.ID, v.Status)
	}
	v.Status = OnRoute
	v.CurrentRoute = route
	v.RouteEndTime = &endTime
	return nil
}

// Return clears the route and moves the vehicle back to IDLE.
func (v *Vehicle) Return() error {
	if v.Status != OnRoute {
		return fmt.Errorf("return vehicle %d: vehicle is not ON_ROUTE (status=%s)", v.ID, v.Status)
	}
	v.Status = Idle
	v.CurrentRoute = nil
	v.RouteEndTime = nil
	return nil
}
