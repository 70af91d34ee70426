package combat

import "errors"

var (
	// ErrTargetNotAttackable is returned when an NPC is flagged non-attackable.
	ErrTargetNotAttackable = errors.New("target is not attackable")
	// ErrAttackerNotFound is returned when the attacker's stats cannot be loaded.
	ErrAttackerNotFound = errors.New("attacker not found")
	// ErrTargetNotFound is returned when the target's stats cannot be loaded.
	ErrTargetNotFound = errors.New("target not found")
	// ErrTargetGone is returned when the target NPC is no longer alive.
	ErrTargetGone = errors.New("target is no longer alive")
	// ErrOutOfRange is returned when the target is beyond weapon reach.
	ErrOutOfRange = errors.New("target is out of range")
	// ErrAttackerIncapacitated is returned when the attacker cannot act.
	ErrAttackerIncapacitated = errors.New("attacker cannot act")
)

// DamageSource identifies what produced a damage application.
type DamageSource int

const (
	SourceMelee DamageSource = iota
	SourceSpell
)

// String returns a human-readable source label.
func (s DamageSource) String() string {
	switch s {
	case SourceMelee:
		return "melee"
	case SourceSpell:
		return "spell"
	default:
		return "unknown"
	}
}

// AttackOutcome is the ephemeral result of one attack.
type AttackOutcome struct {
	Damage       int
	Critical     bool
	Dodged       bool
	TargetDied   bool
	TargetHealth int
}

// DeathOutcome is the ephemeral result of handling one NPC death.
type DeathOutcome struct {
	// EventID uniquely identifies this death handling run.
	EventID string
	// Experience maps recipient user ID to experience credited or pooled.
	Experience map[string]int
	// Gold is the amount placed on the ground; zero when none.
	Gold int
	// Loot lists the item IDs placed on the ground.
	Loot []string
	// RespawnScheduled reports whether a respawn was requested.
	RespawnScheduled bool
}
