package npc

import (
	"errors"
	"sync"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// ErrNotAlive is returned when damage reaches an instance that has already died.
var ErrNotAlive = errors.New("npc is not alive")

// State is an instance's lifecycle stage.
type State int

const (
	StateAlive State = iota
	StateDying
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateDying:
		return "dying"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Instance is a live NPC entity on a map.
//
// Invariant: 0 <= health <= maxHealth; state only advances Alive → Dying → Removed.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID  string
	Name        string
	Level       int
	Hostile     bool
	Attackable  bool
	Gold        GoldRange
	GoldByLevel bool
	LootTable   string
	DeathEffect int
	// Spawn is the spawn point this instance was created from.
	Spawn SpawnPoint

	mu        sync.Mutex
	pos       combat.Position
	health    int
	maxHealth int
	state     State
}

// NewInstance creates a live NPC instance from a template at its spawn point.
//
// Precondition: id must be non-empty; tmpl must be non-nil.
// Postcondition: health equals tmpl.MaxHealth and the state is Alive.
func NewInstance(id string, tmpl *Template, spawn SpawnPoint) *Instance {
	return &Instance{
		ID:          id,
		TemplateID:  tmpl.ID,
		Name:        tmpl.Name,
		Level:       tmpl.Level,
		Hostile:     tmpl.Hostile,
		Attackable:  tmpl.IsAttackable(),
		Gold:        tmpl.Gold,
		GoldByLevel: tmpl.GoldByLevel,
		LootTable:   tmpl.LootTableID(),
		DeathEffect: tmpl.DeathEffect,
		Spawn:       spawn,
		pos:         spawn.Position(),
		health:      tmpl.MaxHealth,
		maxHealth:   tmpl.MaxHealth,
	}
}

// ApplyDamage subtracts amount from health as one atomic step.
//
// Postcondition: returns ErrNotAlive unless the state was Alive. Exactly one
// call over the instance's lifetime returns died == true; that call moves the
// state to Dying.
func (i *Instance) ApplyDamage(amount int) (remaining int, died bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateAlive {
		return 0, false, ErrNotAlive
	}
	if amount > 0 {
		i.health = max(i.health-amount, 0)
	}
	if i.health == 0 {
		i.state = StateDying
		return 0, true, nil
	}
	return i.health, false, nil
}

// RestoreHealth sets health from persisted state while the instance is alive.
// Values are clamped to [1, maxHealth].
func (i *Instance) RestoreHealth(health int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateAlive {
		return
	}
	i.health = min(max(health, 1), i.maxHealth)
}

// MarkRemoved moves a Dying instance to Removed.
//
// Postcondition: returns false when the instance was not Dying.
func (i *Instance) MarkRemoved() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateDying {
		return false
	}
	i.state = StateRemoved
	return true
}

// State returns the current lifecycle stage.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Alive reports whether the instance can still take damage.
func (i *Instance) Alive() bool { return i.State() == StateAlive }

// Health returns current and maximum health.
func (i *Instance) Health() (current, maximum int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.health, i.maxHealth
}

// Position returns the instance's tile.
func (i *Instance) Position() combat.Position {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pos
}

// HealthDescription describes the instance's remaining health in words.
func (i *Instance) HealthDescription() string {
	cur, maxHP := i.Health()
	if cur <= 0 {
		return "dead"
	}
	pct := float64(cur) / float64(maxHP)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
