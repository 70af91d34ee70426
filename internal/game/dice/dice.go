// Package dice provides the randomness abstraction shared by the combat,
// reward, and drop subsystems, plus dice-expression rolling for content
// that specifies quantities as expressions (e.g. "1d4+1").
package dice

import "fmt"

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
//
// Postcondition: return value == sum(r.Dice) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the raw randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// Random is the draw interface injected into every probabilistic formula.
// Each call is an independent draw; callers never reuse a previous result.
type Random interface {
	// UniformInt returns an int uniformly distributed in [min, max].
	// When max < min, min is returned without consuming a draw.
	UniformInt(min, max int) int
	// UniformFloat returns a float uniformly distributed in [min, max).
	UniformFloat(min, max float64) float64
}

// Chance reports whether a single draw from r lands under probability p.
//
// Postcondition: p <= 0 always returns false without drawing; p >= 1 always
// returns true without drawing.
func Chance(r Random, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.UniformFloat(0, 1) < p
}
