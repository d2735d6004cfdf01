package cluster

import (
	"math"
	"sort"

	"meal-delivery-dispatch/internal/domain"
)

// GreedySequential implements §4.3: deliveries are sorted by descending
// Euclidean distance from the depot, then placed into the first vehicle
// (fixed input order) with remaining capacity. Unfittable deliveries are
// left unassigned and remain in the ready pool.
func GreedySequential(deliveries []*domain.Delivery, vehicles []*domain.Vehicle, depot domain.Point) Partition {
	sorted := make([]*domain.Delivery, len(deliveries))
	copy(sorted, deliveries)
	sort.SliceStable(sorted, func(i, j int) bool {
		di := distance(depot, sorted[i].Point)
		dj := distance(depot, sorted[j].Point)
		if di != dj {
			return di > dj
		}
		return sorted[i].ID < sorted[j].ID
	})

	remaining := make([]int, len(vehicles))
	for i, v := range vehicles {
		remaining[i] = v.Capacity
	}

	partition := make(Partition, len(vehicles))
	for _, d := range sorted {
		for i, v := range vehicles {
			if remaining[i] >= d.Size {
				partition[v.ID] = append(partition[v.ID], d)
				remaining[i] -= d.Size
				break
			}
		}
	}

	return partition
}

func distance(a, b domain.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}
