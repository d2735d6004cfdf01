// Package geo builds the symmetric distance matrix and the derived
// travel-time matrix shared read-only by every optimizer for the lifetime
// of a decision tick (§5: the travel-time matrix is immutable for the
// simulation's lifetime).
package geo

import (
	"fmt"
	"math"

	"meal-delivery-dispatch/internal/domain"
)

// Matrix indexes an ordered point list: position 0 is always the depot,
// positions 1..n are deliveries in the order they were supplied.
type Matrix struct {
	ids      []string // ids[0] == "" (depot sentinel), ids[1:] are delivery ids
	index    map[string]int
	dist     [][]float64 // raw Euclidean distance in coordinate units
	travel   [][]float64 // minutes
}

// DepotIndex is the fixed position of the depot in every Matrix.
const DepotIndex = 0

// Build constructs a Matrix over the depot and a fixed-order delivery list.
// minutesPerUnit converts raw Euclidean distance into travel minutes
// (derived travel-time matrix); pass 1.0 when distance units already are
// minutes, or 10 for a travel time of 10*Euclidean (as in the test
// scenarios of spec.md §8).
func Build(depot domain.Point, deliveries []*domain.Delivery, minutesPerUnit float64) *Matrix {
	n := len(deliveries) + 1
	points := make([]domain.Point, n)
	ids := make([]string, n)
	points[DepotIndex] = depot
	ids[DepotIndex] = ""
	for i, d := range deliveries {
		points[i+1] = d.Point
		ids[i+1] = d.ID
	}

	dist := make([][]float64, n)
	travel := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		travel[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
			t := d * minutesPerUnit
			travel[i][j] = t
			travel[j][i] = t
		}
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		if i == DepotIndex {
			continue
		}
		index[id] = i
	}

	return &Matrix{ids: ids, index: index, dist: dist, travel: travel}
}

func euclidean(a, b domain.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// PositionOf returns the matrix position of a delivery id.
func (m *Matrix) PositionOf(id string) (int, bool) {
	p, ok := m.index[id]
	return p, ok
}

// TravelByPos returns the travel time in minutes between two positions.
func (m *Matrix) TravelByPos(i, j int) float64 {
	return m.travel[i][j]
}

// Travel returns the travel time in minutes between two delivery ids, or
// from/to the depot when id == "".
func (m *Matrix) Travel(fromID, toID string) (float64, error) {
	i, err := m.posOrDepot(fromID)
	if err != nil {
		return 0, err
	}
	j, err := m.posOrDepot(toID)
	if err != nil {
		return 0, err
	}
	return m.travel[i][j], nil
}

// DistanceByPos returns the raw Euclidean distance between two positions.
func (m *Matrix) DistanceByPos(i, j int) float64 {
	return m.dist[i][j]
}

func (m *Matrix) posOrDepot(id string) (int, error) {
	if id == "" {
		return DepotIndex, nil
	}
	p, ok := m.index[id]
	if !ok {
		return 0, fmt.Errorf("geo matrix: unknown delivery id %q", id)
	}
	return p, nil
}

// Size returns the number of points (deliveries + depot).
func (m *Matrix) Size() int { return len(m.ids) }

// IDAt returns the delivery id at a position ("" for the depot).
func (m *Matrix) IDAt(pos int) string { return m.ids[pos] }
