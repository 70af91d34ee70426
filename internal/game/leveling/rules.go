package leveling

import (
	"errors"
	"fmt"
)

// Rules holds the resource-maximum formulas applied on level-up.
type Rules struct {
	HPPerConstitution   int
	ManaPerIntelligence int
	MinMaxHealth        int
	MinMaxMana          int
	BaseStamina         int
	StaminaPerLevel     int
}

// DefaultRules returns the stock leveling rules.
func DefaultRules() Rules {
	return Rules{
		HPPerConstitution:   5,
		ManaPerIntelligence: 5,
		MinMaxHealth:        100,
		MinMaxMana:          100,
		BaseStamina:         100,
		StaminaPerLevel:     10,
	}
}

// Validate reports every field that is out of range.
func (r Rules) Validate() error {
	var errs []error
	if r.HPPerConstitution < 0 {
		errs = append(errs, fmt.Errorf("hp_per_constitution must be >= 0, got %d", r.HPPerConstitution))
	}
	if r.ManaPerIntelligence < 0 {
		errs = append(errs, fmt.Errorf("mana_per_intelligence must be >= 0, got %d", r.ManaPerIntelligence))
	}
	if r.MinMaxHealth < 1 {
		errs = append(errs, fmt.Errorf("min_max_health must be >= 1, got %d", r.MinMaxHealth))
	}
	if r.MinMaxMana < 0 {
		errs = append(errs, fmt.Errorf("min_max_mana must be >= 0, got %d", r.MinMaxMana))
	}
	if r.BaseStamina < 0 || r.StaminaPerLevel < 0 {
		errs = append(errs, errors.New("stamina settings must be >= 0"))
	}
	return errors.Join(errs...)
}

// Maxima returns the resource maxima for a character at level with attrs.
func (r Rules) Maxima(level, constitution, intelligence int) (maxHealth, maxMana, maxStamina int) {
	maxHealth = max(constitution*r.HPPerConstitution*level, r.MinMaxHealth)
	maxMana = max(intelligence*r.ManaPerIntelligence*level, r.MinMaxMana)
	maxStamina = r.BaseStamina + level*r.StaminaPerLevel
	return maxHealth, maxMana, maxStamina
}

// Rescale returns the current value that keeps oldCur/oldMax under newMax.
//
// Postcondition: 0 <= result <= newMax; result >= 1 when oldCur > 0 and newMax > 0.
// A non-positive oldMax yields a full pool.
func Rescale(oldCur, oldMax, newMax int) int {
	if newMax <= 0 {
		return 0
	}
	if oldMax <= 0 {
		return newMax
	}
	if oldCur <= 0 {
		return 0
	}
	v := int(int64(newMax) * int64(oldCur) / int64(oldMax))
	if v < 1 {
		v = 1
	}
	if v > newMax {
		v = newMax
	}
	return v
}
