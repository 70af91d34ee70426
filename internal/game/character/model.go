// Package character defines the player combatant model: resource pools,
// attributes, and transient combat modifiers.
package character

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a character does not exist.
var ErrNotFound = errors.New("character not found")

// ErrNoAttributes is returned by stores when a character has no attribute data.
var ErrNoAttributes = errors.New("character attributes unavailable")

// Attribute names one base attribute.
type Attribute string

const (
	Strength     Attribute = "strength"
	Agility      Attribute = "agility"
	Intelligence Attribute = "intelligence"
	Charisma     Attribute = "charisma"
	Constitution Attribute = "constitution"
)

// Attributes holds the five base attribute scores.
type Attributes struct {
	Strength     int
	Agility      int
	Intelligence int
	Charisma     int
	Constitution int
}

// With returns a copy of a with attr increased by delta.
func (a Attributes) With(attr Attribute, delta int) Attributes {
	switch attr {
	case Strength:
		a.Strength += delta
	case Agility:
		a.Agility += delta
	case Intelligence:
		a.Intelligence += delta
	case Charisma:
		a.Charisma += delta
	case Constitution:
		a.Constitution += delta
	}
	return a
}

// Resources holds the three current/maximum resource pools.
//
// Invariant (after Clamp): 0 <= current <= maximum for every pool.
type Resources struct {
	Health     int
	MaxHealth  int
	Mana       int
	MaxMana    int
	Stamina    int
	MaxStamina int
}

// Clamp returns r with every current value bounded by [0, maximum] and
// every maximum bounded below by 0.
func (r Resources) Clamp() Resources {
	r.MaxHealth, r.Health = clampPool(r.Health, r.MaxHealth)
	r.MaxMana, r.Mana = clampPool(r.Mana, r.MaxMana)
	r.MaxStamina, r.Stamina = clampPool(r.Stamina, r.MaxStamina)
	return r
}

func clampPool(cur, max int) (int, int) {
	if max < 0 {
		max = 0
	}
	if cur < 0 {
		cur = 0
	}
	if cur > max {
		cur = max
	}
	return max, cur
}

// Boost is a temporary attribute increase.
type Boost struct {
	Attribute Attribute
	Amount    int
	ExpiresAt time.Time
}

// Modifiers holds transient combat state with expiry timestamps.
type Modifiers struct {
	Boosts         []Boost
	PoisonedUntil  time.Time
	ParalyzedUntil time.Time
	InvisibleUntil time.Time
}

// Effective returns base with every unexpired boost applied.
func (m Modifiers) Effective(base Attributes, now time.Time) Attributes {
	for _, b := range m.Boosts {
		if now.Before(b.ExpiresAt) {
			base = base.With(b.Attribute, b.Amount)
		}
	}
	return base
}

// Poisoned reports whether poison is active at now.
func (m Modifiers) Poisoned(now time.Time) bool { return now.Before(m.PoisonedUntil) }

// Paralyzed reports whether paralysis is active at now.
func (m Modifiers) Paralyzed(now time.Time) bool { return now.Before(m.ParalyzedUntil) }

// Invisible reports whether invisibility is active at now.
func (m Modifiers) Invisible(now time.Time) bool { return now.Before(m.InvisibleUntil) }

// Prune returns m without expired boosts and with expired timestamps zeroed.
//
// Postcondition: every remaining boost expires after now.
func (m Modifiers) Prune(now time.Time) Modifiers {
	var kept []Boost
	for _, b := range m.Boosts {
		if now.Before(b.ExpiresAt) {
			kept = append(kept, b)
		}
	}
	m.Boosts = kept
	if !m.Poisoned(now) {
		m.PoisonedUntil = time.Time{}
	}
	if !m.Paralyzed(now) {
		m.ParalyzedUntil = time.Time{}
	}
	if !m.Invisible(now) {
		m.InvisibleUntil = time.Time{}
	}
	return m
}

// Stats is the full combat-relevant state of one player character.
//
// Invariant: Level >= 1; Resources satisfies the Clamp invariant.
type Stats struct {
	ID         string
	Name       string
	Level      int
	Experience int
	// ExpToNext is the remaining experience before the next level.
	ExpToNext  int
	Gold       int
	Resources  Resources
	Attributes Attributes
	Modifiers  Modifiers
}

// Effective returns the character's attributes with active boosts at now.
func (s *Stats) Effective(now time.Time) Attributes {
	return s.Modifiers.Effective(s.Attributes, now)
}

// Alive reports whether the character has health remaining.
func (s *Stats) Alive() bool { return s.Resources.Health > 0 }
