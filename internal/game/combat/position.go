package combat

import "math"

// Position is a tile on a map.
type Position struct {
	MapID int
	X     int
	Y     int
}

// ChebyshevDistance returns max(|dx|, |dy|) between a and b, ignoring map.
func ChebyshevDistance(a, b Position) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// EuclideanDistance returns the straight-line distance between a and b, ignoring map.
func EuclideanDistance(a, b Position) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// CanAttack reports whether an attacker at attacker can reach target.
// Reach is measured with Chebyshev distance so the eight tiles around an
// attacker are all at distance 1; positions on different maps never reach.
//
// Precondition: reach >= 1.
func CanAttack(attacker, target Position, reach int) bool {
	if attacker.MapID != target.MapID {
		return false
	}
	return ChebyshevDistance(attacker, target) <= reach
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
