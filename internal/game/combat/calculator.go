package combat

import (
	"math"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// DamageResult is the outcome of one player swing.
//
// Invariant: Dodged implies Damage == 0 and !Critical; otherwise Damage >= MinDamage.
type DamageResult struct {
	Damage   int
	Critical bool
	Dodged   bool
}

// Calculator evaluates the damage and reward formulas against a Ruleset,
// drawing every random value from an injected dice.Random.
//
// Calculator is stateless apart from its dependencies and safe for concurrent
// use when rng is.
type Calculator struct {
	rules Ruleset
	rng   dice.Random
}

// NewCalculator returns a Calculator.
//
// Precondition: rng must be non-nil; rules should pass Validate.
func NewCalculator(rules Ruleset, rng dice.Random) *Calculator {
	return &Calculator{rules: rules, rng: rng}
}

// Rules returns the ruleset this calculator evaluates.
func (c *Calculator) Rules() Ruleset { return c.rules }

// Random returns the injected random source.
func (c *Calculator) Random() dice.Random { return c.rng }

// DodgeChance returns the dodge probability granted by agility.
//
// Postcondition: 0 <= result <= MaxDodgeChance.
func (c *Calculator) DodgeChance(agility int) float64 {
	if agility <= 0 {
		return 0
	}
	return math.Min(float64(agility)*c.rules.DodgePerAgility, c.rules.MaxDodgeChance)
}

// RollDodge performs the dodge check for a defender with the given agility.
func (c *Calculator) RollDodge(agility int) bool {
	return dice.Chance(c.rng, c.DodgeChance(agility))
}

// CalculatePlayerDamage resolves one player swing against a target.
// The dodge check runs first and short-circuits every other draw.
//
// Precondition: strength, weaponDamage, targetLevel >= 0.
// Postcondition: Dodged results carry zero damage; all others carry >= MinDamage.
func (c *Calculator) CalculatePlayerDamage(strength, weaponDamage, targetLevel, defenderAgility int) DamageResult {
	if c.RollDodge(defenderAgility) {
		return DamageResult{Dodged: true}
	}
	return c.playerHit(strength, weaponDamage, targetLevel)
}

// playerHit computes a non-dodged hit: base, defense reduction, then critical.
func (c *Calculator) playerHit(strength, weaponDamage, targetLevel int) DamageResult {
	base := strength/2 + weaponDamage
	reduction := float64(targetLevel) * c.rules.DefensePerLevel
	dmg := c.clamp(int(math.Floor(float64(base) * (1 - reduction))))

	crit := dice.Chance(c.rng, c.rules.CritChance)
	if crit {
		dmg = c.clamp(int(math.Floor(float64(dmg) * c.rules.CritMultiplier)))
	}
	return DamageResult{Damage: dmg, Critical: crit}
}

// CalculateNpcDamage resolves one NPC swing against a player whose armor
// reduces damage by armorReduction.
//
// Precondition: npcLevel >= 0; armorReduction in [0, 1].
// Postcondition: Returns >= MinDamage.
func (c *Calculator) CalculateNpcDamage(npcLevel int, armorReduction float64) int {
	base := npcLevel * c.rules.NpcDamagePerLevel
	variation := c.rng.UniformFloat(c.rules.NpcVarianceMin, c.rules.NpcVarianceMax)
	dmg := int(math.Floor(float64(base) * variation))
	dmg = int(math.Floor(float64(dmg) * (1 - armorReduction)))
	return c.clamp(dmg)
}

// CalculateExperience returns the experience awarded for killing an NPC.
//
// Postcondition: Returns npcLevel*ExpPerLevel + a draw in [0, npcLevel*2]; never negative.
func (c *Calculator) CalculateExperience(npcLevel int) int {
	if npcLevel < 0 {
		npcLevel = 0
	}
	return npcLevel*c.rules.ExpPerLevel + c.rng.UniformInt(0, npcLevel*2)
}

// CalculateGoldDrop returns the gold reward formula value for an NPC level.
//
// Postcondition: Returns npcLevel*GoldPerLevel + a draw in [GoldBonusMin, GoldBonusMax]; never negative.
func (c *Calculator) CalculateGoldDrop(npcLevel int) int {
	if npcLevel < 0 {
		npcLevel = 0
	}
	return npcLevel*c.rules.GoldPerLevel + c.rng.UniformInt(c.rules.GoldBonusMin, c.rules.GoldBonusMax)
}

// RollGold draws an amount in [min, max] for a ground gold drop.
//
// Postcondition: Returns 0 when the range is degenerate at zero.
func (c *Calculator) RollGold(min, max int) int {
	if max <= 0 {
		return 0
	}
	if min < 0 {
		min = 0
	}
	return c.rng.UniformInt(min, max)
}

func (c *Calculator) clamp(dmg int) int {
	if dmg < c.rules.MinDamage {
		return c.rules.MinDamage
	}
	return dmg
}
