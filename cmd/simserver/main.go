package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"meal-delivery-dispatch/internal/api"
	"meal-delivery-dispatch/internal/api/dto"
	"meal-delivery-dispatch/internal/config"
	"meal-delivery-dispatch/internal/domain"
	"meal-delivery-dispatch/internal/scenario"
	"meal-delivery-dispatch/internal/sim"
	"meal-delivery-dispatch/internal/strategy"
)

// main is the application composition root. It wires configuration,
// optionally a seed scenario, the discrete-event simulation driver, and the
// HTTP/websocket layer, then serves until killed.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}

	sel, err := strategy.Select(cfg)
	if err != nil {
		log.Fatal(err)
	}

	depot := domain.Point{Lat: getEnvFloat("DEPOT_LAT", 0), Lng: getEnvFloat("DEPOT_LNG", 0)}
	minutesPerUnit := getEnvFloat("MINUTES_PER_UNIT", 1.0)
	epoch := time.Now()
	port := getEnv("PORT", "8080")

	var sc *scenario.Scenario
	if scenarioPath := os.Getenv("SCENARIO_PATH"); scenarioPath != "" {
		sc, err = scenario.LoadFile(scenarioPath)
		if err != nil {
			log.Fatal(err)
		}
		depot, minutesPerUnit, epoch = sc.Depot, sc.MinutesPerUnit, sc.Epoch
	}

	driver := sim.NewDriver(cfg, sel, depot, minutesPerUnit, epoch)

	hub := api.NewHub()
	driver.OnDecision = func(d sim.DecisionSummary) {
		hub.Broadcast(dto.RoutesUpdate{
			Now:        d.Now,
			Routes:     d.Plan,
			Penalty:    d.Penalty,
			OnRoad:     d.OnRoad,
			Infeasible: d.Infeasible,
		})
	}

	if sc != nil {
		if err := sc.Apply(driver); err != nil {
			log.Fatal(err)
		}
	}

	router := api.NewRouter(driver, hub)

	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
