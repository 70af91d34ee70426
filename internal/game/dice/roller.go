package dice

import "sort"

// RollRandom evaluates expr drawing each die from r.
//
// Precondition: expr must come from Parse; r must be non-nil.
// Postcondition: result.Total() == sum(result.Dice) + result.Modifier.
func RollRandom(expr Expression, r Random) RollResult {
	return rollWith(expr, func(sides int) int { return r.UniformInt(1, sides) })
}

func rollWith(expr Expression, die func(sides int) int) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = die(expr.Sides)
	}
	kept := rolled
	if expr.KeepHighest > 0 {
		sorted := make([]int, len(rolled))
		copy(sorted, rolled)
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		kept = sorted[:expr.KeepHighest]
	}
	return RollResult{
		Expression: expr.Raw,
		Dice:       kept,
		Modifier:   expr.Modifier,
	}
}
