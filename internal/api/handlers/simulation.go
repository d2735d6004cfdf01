package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"meal-delivery-dispatch/internal/api/dto"
	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/sim"
)

// SimulationHandler exposes the driver's register_vehicle, submit_order,
// advance_time, trigger_decision and status operations over HTTP (§6).
type SimulationHandler struct {
	Driver *sim.Driver
}

func decodeOnlyBody(r *http.Request, w http.ResponseWriter, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// RegisterVehicle handles register_vehicle.
func (h *SimulationHandler) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.RegisterVehicleRequest
	if !decodeOnlyBody(r, w, &req) {
		return
	}
	if req.Capacity <= 0 {
		writeError(w, r, http.StatusBadRequest, "capacity must be positive")
		return
	}

	v := &domain.Vehicle{ID: req.VehicleID, Capacity: req.Capacity, Status: domain.Idle}
	if err := h.Driver.RegisterVehicle(v); err != nil {
		log.Printf("register vehicle failed: %v", err)
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]string{"status": "registered"})
}

// SubmitOrder handles submit_order.
func (h *SimulationHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.SubmitOrderRequest
	if !decodeOnlyBody(r, w, &req) {
		return
	}
	if req.Size <= 0 {
		writeError(w, r, http.StatusBadRequest, "size must be positive")
		return
	}

	del := &domain.Delivery{
		ID:                 req.DeliveryID,
		Point:              domain.Point{Lat: req.Lat, Lng: req.Lng},
		Size:               req.Size,
		PreparationMinutes: req.PreparationMinutes,
		ServiceMinutes:     req.ServiceMinutes,
		Status:             domain.Pending,
	}
	if err := h.Driver.SubmitOrder(del); err != nil {
		log.Printf("submit order failed: %v", err)
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]string{"status": "submitted"})
}

// AdvanceTime handles advance_time.
func (h *SimulationHandler) AdvanceTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.AdvanceTimeRequest
	if !decodeOnlyBody(r, w, &req) {
		return
	}

	if err := h.Driver.AdvanceTime(req.To); err != nil {
		log.Printf("advance time failed: %v", err)
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, statusResponse(h.Driver))
}

// TriggerDecision handles trigger_decision: an out-of-band decision, in
// addition to the periodic DECISION_TICK cadence.
func (h *SimulationHandler) TriggerDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := h.Driver.TriggerDecision(); err != nil {
		log.Printf("trigger decision failed: %v", err)
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, statusResponse(h.Driver))
}

// Status reports the current simulation snapshot.
func (h *SimulationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse(h.Driver))
}

func statusResponse(d *sim.Driver) dto.StatusResponse {
	snap := d.Monitor().Snapshot()
	return dto.StatusResponse{
		Now:             d.Now(),
		Delivered:       snap.Delivered,
		Late:            snap.Late,
		TotalPenalty:    snap.TotalPenalty,
		TotalOnRoadMins: snap.TotalOnRoadMins,
		InfeasibleTicks: snap.InfeasibleTicks,
		DecisionTicks:   snap.DecisionTicks,
	}
}
