package gameserver

import (
	"context"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// CharacterStore loads and persists player combat state.
type CharacterStore interface {
	leveling.Store
	// LoadStats returns the full stats of userID, or character.ErrNotFound.
	LoadStats(ctx context.Context, userID string) (*character.Stats, error)
	// SaveModifiers persists the transient combat modifiers of userID.
	SaveModifiers(ctx context.Context, userID string, mods character.Modifiers) error
}

// NpcStore persists NPC instance health.
type NpcStore interface {
	SaveNpcHealth(ctx context.Context, instanceID string, health, maxHealth int) error
	DeleteNpc(ctx context.Context, instanceID string) error
	// LoadNpcHealth returns the stored health; ok is false when none is stored.
	LoadNpcHealth(ctx context.Context, instanceID string) (current, maximum int, ok bool, err error)
}

// Notifier delivers notices to one player or to every observer on a map.
type Notifier interface {
	Notify(userID string, n session.Notice)
	Broadcast(mapID int, n session.Notice)
}

// Locator resolves a connected player's position.
type Locator interface {
	Position(userID string) (combat.Position, bool)
}

// EquipmentService resolves the combat values of a player's equipped gear.
// ok is false when nothing relevant is equipped.
type EquipmentService interface {
	WeaponDamage(userID string) (int, bool)
	ArmorReduction(userID string) (float64, bool)
}

// LootProvider rolls the drops of a loot table.
type LootProvider interface {
	DropsFor(tableID string) []npc.Drop
}

// ItemCatalog resolves display metadata for an item.
type ItemCatalog interface {
	Displayable(itemID string) (*inventory.ItemDef, bool)
}

// Floor places items on the ground with a bounded free-tile search.
type Floor interface {
	DropNear(mapID, x, y int, item inventory.GroundItem) (inventory.GroundItem, bool)
}

// RespawnScheduler queues recreation of a dead NPC at its spawn point.
type RespawnScheduler interface {
	ScheduleRespawn(inst *npc.Instance)
}

// PartyLookup resolves the party a player belongs to.
type PartyLookup interface {
	GetPartyOf(userID string) (*party.Party, bool)
}

// PartyDistributor splits a reward across eligible party members.
type PartyDistributor interface {
	Distribute(ctx context.Context, totalExp, mapID, x, y int, p *party.Party) map[string]int
}

// Reaper consumes the single lethal transition of an NPC.
type Reaper interface {
	HandleNpcDeath(ctx context.Context, inst *npc.Instance, killerID string, rolledExp int, reason string) (combat.DeathOutcome, error)
}
