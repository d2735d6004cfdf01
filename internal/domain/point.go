package domain

// Point is an immutable geographic coordinate.
type Point struct {
	Lat float64
	Lng float64
}
