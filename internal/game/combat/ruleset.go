// Package combat implements the damage and reward formulas and the value
// types exchanged by the combat orchestrator.
package combat

import (
	"errors"
	"fmt"
	"strings"
)

// Ruleset holds every tunable constant used by the damage and reward
// formulas. It is built from configuration and injected at construction.
type Ruleset struct {
	// DefensePerLevel is the fractional damage reduction per target level.
	DefensePerLevel float64
	// CritChance is the probability of a critical hit in [0, 1].
	CritChance float64
	// CritMultiplier scales post-defense damage on a critical hit.
	CritMultiplier float64
	// DodgePerAgility is the dodge probability granted per agility point.
	DodgePerAgility float64
	// MaxDodgeChance caps the dodge probability.
	MaxDodgeChance float64
	// NpcDamagePerLevel is the NPC base damage per NPC level.
	NpcDamagePerLevel int
	// NpcVarianceMin and NpcVarianceMax bound the NPC damage multiplier.
	NpcVarianceMin float64
	NpcVarianceMax float64
	// ExpPerLevel is the fixed experience per NPC level.
	ExpPerLevel int
	// GoldPerLevel is the fixed gold per NPC level.
	GoldPerLevel int
	// GoldBonusMin and GoldBonusMax bound the random gold bonus.
	GoldBonusMin int
	GoldBonusMax int
	// MinDamage is the floor applied to every non-dodged hit.
	MinDamage int
	// WeaponReach is the maximum Chebyshev distance of a melee attack.
	WeaponReach int
	// FallbackWeaponDamage is used when the equipment service has no weapon.
	FallbackWeaponDamage int
	// FallbackArmorReduction is used when the equipment service has no armor.
	FallbackArmorReduction float64
	// NpcAgilityPerLevel derives an NPC's effective agility from its level.
	NpcAgilityPerLevel int
}

// DefaultRuleset returns the stock balance values.
func DefaultRuleset() Ruleset {
	return Ruleset{
		DefensePerLevel:        0.10,
		CritChance:             0.05,
		CritMultiplier:         1.5,
		DodgePerAgility:        0.005,
		MaxDodgeChance:         0.25,
		NpcDamagePerLevel:      3,
		NpcVarianceMin:         0.8,
		NpcVarianceMax:         1.2,
		ExpPerLevel:            10,
		GoldPerLevel:           5,
		GoldBonusMin:           1,
		GoldBonusMax:           50,
		MinDamage:              1,
		WeaponReach:            1,
		FallbackWeaponDamage:   5,
		FallbackArmorReduction: 0.10,
		NpcAgilityPerLevel:     2,
	}
}

// Validate checks the ruleset invariants.
//
// Postcondition: Returns nil iff every probability is in [0, 1], multipliers
// are positive, and ranges are ordered; otherwise an error listing every violation.
func (r Ruleset) Validate() error {
	var errs []string
	probs := map[string]float64{
		"crit_chance":              r.CritChance,
		"max_dodge_chance":         r.MaxDodgeChance,
		"fallback_armor_reduction": r.FallbackArmorReduction,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1], got %v", name, p))
		}
	}
	if r.DefensePerLevel < 0 {
		errs = append(errs, "defense_per_level must be >= 0")
	}
	if r.DodgePerAgility < 0 {
		errs = append(errs, "dodge_per_agility must be >= 0")
	}
	if r.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("crit_multiplier must be >= 1, got %v", r.CritMultiplier))
	}
	if r.NpcVarianceMin <= 0 || r.NpcVarianceMin > r.NpcVarianceMax {
		errs = append(errs, "npc variance must satisfy 0 < min <= max")
	}
	if r.GoldBonusMin < 0 || r.GoldBonusMin > r.GoldBonusMax {
		errs = append(errs, "gold bonus must satisfy 0 <= min <= max")
	}
	if r.MinDamage < 1 {
		errs = append(errs, "min_damage must be >= 1")
	}
	if r.WeaponReach < 1 {
		errs = append(errs, "weapon_reach must be >= 1")
	}
	if r.ExpPerLevel < 0 || r.GoldPerLevel < 0 || r.NpcDamagePerLevel < 0 {
		errs = append(errs, "per-level constants must be >= 0")
	}
	if len(errs) > 0 {
		return errors.New("combat ruleset: " + strings.Join(errs, "; "))
	}
	return nil
}
