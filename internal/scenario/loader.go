// Package scenario loads a fixed fleet/order-book JSON file into a running
// simulation: os.ReadFile, a flat JSON shape, wrapped errors.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/sim"
)

// VehicleSeed is one fleet entry.
type VehicleSeed struct {
	ID       int `json:"id"`
	Capacity int `json:"capacity"`
}

// OrderSeed is one order, present at load time rather than arriving later
// via the submit_order operation. It has no receipt_time field: Apply
// submits every order through the same driver.SubmitOrder path a live
// submit_order call would use, so receipt time always comes from the
// driver's clock at the moment of submission.
type OrderSeed struct {
	ID                 string  `json:"id"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	Size               int     `json:"size"`
	PreparationMinutes int     `json:"preparation_minutes"`
	ServiceMinutes     int     `json:"service_minutes"`
}

// Scenario is a complete, self-contained simulation setup.
type Scenario struct {
	Depot          domain.Point  `json:"depot"`
	MinutesPerUnit float64       `json:"minutes_per_unit"`
	Epoch          time.Time     `json:"epoch"`
	Vehicles       []VehicleSeed `json:"vehicles"`
	Orders         []OrderSeed   `json:"orders"`
}

// LoadFile reads and parses a scenario JSON file.
func LoadFile(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %q: %w", path, err)
	}

	var s Scenario
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %q: %w", path, err)
	}
	if s.MinutesPerUnit <= 0 {
		s.MinutesPerUnit = 1.0
	}
	return &s, nil
}

// Apply registers every vehicle and submits every order into driver. Orders
// are submitted in file order so their ORDER_RECEIVED/ORDER_READY events
// land deterministically relative to one another when timestamps tie.
func (s *Scenario) Apply(driver *sim.Driver) error {
	for _, v := range s.Vehicles {
		vehicle := &domain.Vehicle{ID: v.ID, Capacity: v.Capacity, Status: domain.Idle}
		if err := driver.RegisterVehicle(vehicle); err != nil {
			return fmt.Errorf("scenario: register vehicle %d: %w", v.ID, err)
		}
	}

	for _, o := range s.Orders {
		del := &domain.Delivery{
			ID:                 o.ID,
			Point:              domain.Point{Lat: o.Lat, Lng: o.Lng},
			Size:               o.Size,
			PreparationMinutes: o.PreparationMinutes,
			ServiceMinutes:     o.ServiceMinutes,
			Status:             domain.Pending,
		}
		if err := driver.SubmitOrder(del); err != nil {
			return fmt.Errorf("scenario: submit order %s: %w", o.ID, err)
		}
	}

	return nil
}
