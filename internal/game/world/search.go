package world

// Offset is a tile displacement from a search center.
type Offset struct{ DX, DY int }

// RingOffsets returns up to budget offsets ordered by ring: the center first,
// then the eight tiles of ring 1, then ring 2, and so on.
//
// Postcondition: len(result) == max(budget, 0) and offsets are distinct.
func RingOffsets(budget int) []Offset {
	if budget <= 0 {
		return nil
	}
	out := make([]Offset, 0, budget)
	out = append(out, Offset{})
	for r := 1; len(out) < budget; r++ {
		for dy := -r; dy <= r && len(out) < budget; dy++ {
			for dx := -r; dx <= r && len(out) < budget; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				out = append(out, Offset{DX: dx, DY: dy})
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
