// Package cluster implements the two clustering strategies of §4.2/§4.3:
// the capacitated K-Means clusterer (MIP assignment step) and the greedy
// sequential first-fit clusterer.
package cluster

import "meal-delivery-dispatch/internal/domain"

// Partition maps a vehicle id to the deliveries assigned to it. A delivery
// absent from every slice is unassigned (demand exceeded capacity).
type Partition map[int][]*domain.Delivery

// Unassigned returns every delivery not present in any partition entry,
// relative to the supplied full delivery list.
func (p Partition) Unassigned(all []*domain.Delivery) []*domain.Delivery {
	placed := make(map[string]struct{})
	for _, ds := range p {
		for _, d := range ds {
			placed[d.ID] = struct{}{}
		}
	}
	var out []*domain.Delivery
	for _, d := range all {
		if _, ok := placed[d.ID]; !ok {
			out = append(out, d)
		}
	}
	return out
}
