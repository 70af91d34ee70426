// Package leveling converts accumulated experience into character levels
// and rescales resource pools when a character advances.
package leveling

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Curve maps total experience onto a level.
//
// Implementations must be monotonic: more experience never yields a lower level.
type Curve interface {
	// LevelFor returns the level reached with totalExp experience (>= 1).
	LevelFor(totalExp int) int
	// RemainingToNext returns the experience still needed to reach the next
	// level, or 0 at the level cap.
	RemainingToNext(totalExp int) int
}

// TableCurve is a Curve backed by an explicit threshold table.
// Thresholds[i] is the total experience required to reach level i+1.
type TableCurve struct {
	Thresholds []int `toml:"thresholds"`
}

// LoadTableCurve reads a TOML experience table from path.
//
// Precondition: the file defines a strictly increasing thresholds array starting at 0.
// Postcondition: returns a validated curve or an error.
func LoadTableCurve(path string) (*TableCurve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exp table %s: %w", path, err)
	}
	var c TableCurve
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse exp table %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("exp table %s: %w", path, err)
	}
	return &c, nil
}

// DefaultCurve returns a 99-level table where reaching level L needs 50*(L-1)*L experience.
func DefaultCurve() *TableCurve {
	const maxLevel = 99
	t := make([]int, maxLevel)
	for l := 1; l <= maxLevel; l++ {
		t[l-1] = 50 * (l - 1) * l
	}
	return &TableCurve{Thresholds: t}
}

// Validate checks the table is non-empty, starts at 0, and strictly increases.
func (c *TableCurve) Validate() error {
	if len(c.Thresholds) == 0 {
		return errors.New("thresholds must not be empty")
	}
	if c.Thresholds[0] != 0 {
		return fmt.Errorf("thresholds[0] must be 0, got %d", c.Thresholds[0])
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i] <= c.Thresholds[i-1] {
			return fmt.Errorf("thresholds must strictly increase at index %d", i)
		}
	}
	return nil
}

// LevelFor implements Curve.
func (c *TableCurve) LevelFor(totalExp int) int {
	lo, hi := 0, len(c.Thresholds)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.Thresholds[mid] <= totalExp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

// RemainingToNext implements Curve.
func (c *TableCurve) RemainingToNext(totalExp int) int {
	lvl := c.LevelFor(totalExp)
	if lvl >= len(c.Thresholds) {
		return 0
	}
	return c.Thresholds[lvl] - totalExp
}
