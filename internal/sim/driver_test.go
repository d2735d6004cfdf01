package sim

import (
	"testing"
	"time"

	"meal-delivery-dispatch/internal/config"
	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/strategy"
)

func testSelection(t *testing.T) (config.Config, strategy.Selection) {
	t.Helper()
	cfg := config.Default()
	cfg.ClusteringAlgo = config.GreedySequential
	cfg.RoutingAlgo = config.CheapestInsertion
	cfg.DecisionIntervalMinutes = 10

	sel, err := strategy.Select(cfg)
	if err != nil {
		t.Fatalf("unexpected error selecting strategy: %v", err)
	}
	return cfg, sel
}

func TestDriverEndToEndSingleDeliverySingleVehicle(t *testing.T) {
	cfg, sel := testSelection(t)
	depot := domain.Point{Lat: 0, Lng: 0}
	epoch := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	d := NewDriver(cfg, sel, depot, 1, epoch)

	if err := d.RegisterVehicle(&domain.Vehicle{ID: 1, Capacity: 10, Status: domain.Idle}); err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	del := &domain.Delivery{
		ID:             "a",
		Point:          domain.Point{Lat: 1, Lng: 0},
		Size:           1,
		ServiceMinutes: 100,
		Status:         domain.Pending,
	}
	if err := d.SubmitOrder(del); err != nil {
		t.Fatalf("submit order: %v", err)
	}

	// Decision tick fires at epoch+10min; ASAP dispatch departs immediately,
	// so the vehicle should be ON_ROUTE by then but not yet returned.
	if err := d.AdvanceTime(epoch.Add(10 * time.Minute)); err != nil {
		t.Fatalf("advance time: %v", err)
	}
	if del.Status != domain.Dispatched {
		t.Errorf("delivery status = %v, want DISPATCHED", del.Status)
	}

	// Round trip depot->a->depot is 2 simulated minutes; by +15min the
	// vehicle should have delivered and returned.
	if err := d.AdvanceTime(epoch.Add(15 * time.Minute)); err != nil {
		t.Fatalf("advance time: %v", err)
	}
	if del.Status != domain.Delivered {
		t.Errorf("delivery status = %v, want DELIVERED", del.Status)
	}

	snap := d.Monitor().Snapshot()
	if snap.Delivered != 1 {
		t.Errorf("Delivered = %d, want 1", snap.Delivered)
	}
	if snap.Late != 0 {
		t.Errorf("Late = %d, want 0", snap.Late)
	}
	if snap.DecisionTicks != 1 {
		t.Errorf("DecisionTicks = %d, want 1", snap.DecisionTicks)
	}
	if snap.InfeasibleTicks != 0 {
		t.Errorf("InfeasibleTicks = %d, want 0", snap.InfeasibleTicks)
	}
}

func TestDriverLeavesOverCapacityDeliveryReadyAndInfeasible(t *testing.T) {
	cfg, sel := testSelection(t)
	depot := domain.Point{Lat: 0, Lng: 0}
	epoch := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	d := NewDriver(cfg, sel, depot, 1, epoch)
	if err := d.RegisterVehicle(&domain.Vehicle{ID: 1, Capacity: 1, Status: domain.Idle}); err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		del := &domain.Delivery{
			ID:             id,
			Point:          domain.Point{Lat: 1, Lng: 0},
			Size:           1,
			ServiceMinutes: 100,
			Status:         domain.Pending,
		}
		if err := d.SubmitOrder(del); err != nil {
			t.Fatalf("submit order %s: %v", id, err)
		}
	}

	if err := d.AdvanceTime(epoch.Add(10 * time.Minute)); err != nil {
		t.Fatalf("advance time: %v", err)
	}

	snap := d.Monitor().Snapshot()
	if snap.InfeasibleTicks != 1 {
		t.Errorf("InfeasibleTicks = %d, want 1 (capacity 1, demand 2)", snap.InfeasibleTicks)
	}
}

func TestDriverRejectsDuplicateVehicleRegistration(t *testing.T) {
	cfg, sel := testSelection(t)
	depot := domain.Point{Lat: 0, Lng: 0}
	epoch := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	d := NewDriver(cfg, sel, depot, 1, epoch)

	v := &domain.Vehicle{ID: 1, Capacity: 10, Status: domain.Idle}
	if err := d.RegisterVehicle(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.RegisterVehicle(v); err == nil {
		t.Fatal("expected error registering the same vehicle id twice")
	}
}

func TestDriverRejectsNonPendingOrder(t *testing.T) {
	cfg, sel := testSelection(t)
	depot := domain.Point{Lat: 0, Lng: 0}
	epoch := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	d := NewDriver(cfg, sel, depot, 1, epoch)

	del := &domain.Delivery{ID: "a", Status: domain.Ready}
	if err := d.SubmitOrder(del); err == nil {
		t.Fatal("expected error submitting a non-PENDING delivery")
	}
}

// TestDriverSubmitOrderStampsReceiptTimeFromClock guards against a caller
// backdating/postdating an order: SubmitOrder must ignore any ReceiptTime
// already set on the struct and stamp the driver's current clock instead.
func TestDriverSubmitOrderStampsReceiptTimeFromClock(t *testing.T) {
	cfg, sel := testSelection(t)
	depot := domain.Point{Lat: 0, Lng: 0}
	epoch := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	d := NewDriver(cfg, sel, depot, 1, epoch)

	if err := d.AdvanceTime(epoch.Add(37 * time.Minute)); err != nil {
		t.Fatalf("advance time: %v", err)
	}

	del := &domain.Delivery{
		ID:             "a",
		Point:          domain.Point{Lat: 1, Lng: 0},
		Size:           1,
		ServiceMinutes: 100,
		ReceiptTime:    epoch, // stale value a caller might supply; must be overwritten
		Status:         domain.Pending,
	}
	if err := d.SubmitOrder(del); err != nil {
		t.Fatalf("submit order: %v", err)
	}

	if !del.ReceiptTime.Equal(d.Now()) {
		t.Errorf("ReceiptTime = %v, want driver clock %v", del.ReceiptTime, d.Now())
	}
	if del.ReceiptTime.Equal(epoch) {
		t.Error("ReceiptTime was left at the caller-supplied value instead of being stamped from the clock")
	}
}
