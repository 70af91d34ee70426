package inventory

import (
	"fmt"
	"sync"
)

// Loadout is the gear one player has equipped.
type Loadout struct {
	WeaponID string
	ArmorIDs []string
}

// Equipment resolves combat values from equipped gear.
// All methods are safe for concurrent use.
type Equipment struct {
	mu       sync.RWMutex
	catalog  *Catalog
	loadouts map[string]Loadout // userID → Loadout
}

// NewEquipment creates an Equipment service over catalog.
func NewEquipment(catalog *Catalog) *Equipment {
	return &Equipment{catalog: catalog, loadouts: make(map[string]Loadout)}
}

// EquipWeapon sets userID's weapon.
//
// Postcondition: returns an error unless itemID is a catalog weapon.
func (e *Equipment) EquipWeapon(userID, itemID string) error {
	d, ok := e.catalog.Item(itemID)
	if !ok || d.Kind != KindWeapon {
		return fmt.Errorf("equipping %q: not a weapon", itemID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.loadouts[userID]
	l.WeaponID = itemID
	e.loadouts[userID] = l
	return nil
}

// EquipArmor adds an armor piece to userID's loadout.
func (e *Equipment) EquipArmor(userID, itemID string) error {
	d, ok := e.catalog.Item(itemID)
	if !ok || d.Kind != KindArmor {
		return fmt.Errorf("equipping %q: not armor", itemID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.loadouts[userID]
	l.ArmorIDs = append(l.ArmorIDs, itemID)
	e.loadouts[userID] = l
	return nil
}

// Unequip clears userID's loadout.
func (e *Equipment) Unequip(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.loadouts, userID)
}

// WeaponDamage returns the equipped weapon's damage.
//
// Postcondition: ok is false when no weapon is equipped.
func (e *Equipment) WeaponDamage(userID string) (int, bool) {
	e.mu.RLock()
	l, ok := e.loadouts[userID]
	e.mu.RUnlock()
	if !ok || l.WeaponID == "" {
		return 0, false
	}
	d, ok := e.catalog.Item(l.WeaponID)
	if !ok {
		return 0, false
	}
	return d.Damage, true
}

// ArmorReduction returns the combined reduction of equipped armor, where
// pieces stack multiplicatively.
//
// Postcondition: ok is false when no armor is equipped; result is in [0, 1).
func (e *Equipment) ArmorReduction(userID string) (float64, bool) {
	e.mu.RLock()
	l, ok := e.loadouts[userID]
	e.mu.RUnlock()
	if !ok || len(l.ArmorIDs) == 0 {
		return 0, false
	}
	pass := 1.0
	for _, id := range l.ArmorIDs {
		if d, ok := e.catalog.Item(id); ok {
			pass *= 1 - d.ArmorReduction
		}
	}
	return 1 - pass, true
}
