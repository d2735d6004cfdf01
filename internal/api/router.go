package api

import (
	"net/http"

	"meal-delivery-dispatch/internal/api/handlers"
	"meal-delivery-dispatch/internal/sim"
)

// NewRouter wires HTTP and websocket handlers to a running simulation
// Driver and returns an http.Handler. This is the API composition root
// (handlers stay unaware of the simulation's internals beyond the Driver's
// exported operations).
func NewRouter(driver *sim.Driver, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	simHandler := &handlers.SimulationHandler{Driver: driver}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/vehicles", simHandler.RegisterVehicle)
	mux.HandleFunc("/orders", simHandler.SubmitOrder)
	mux.HandleFunc("/time/advance", simHandler.AdvanceTime)
	mux.HandleFunc("/decisions/trigger", simHandler.TriggerDecision)
	mux.HandleFunc("/status", simHandler.Status)
	mux.HandleFunc("/ws/routes", hub.ServeWS)

	return loggingMiddleware(mux)
}
