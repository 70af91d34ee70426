package gameserver

import (
	"fmt"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
	"github.com/cory-johannsen/realm/internal/game/world"
	"github.com/cory-johannsen/realm/internal/scripting"
)

// ProviderSet builds an App from a config.Config, a context and a logger.
var ProviderSet = wire.NewSet(
	LoadContent,
	wire.FieldsOf(new(*Content), "Maps", "Catalog"),
	OpenStores,
	wire.FieldsOf(new(*Stores), "Chars", "Npcs", "Parties"),
	ProvideLevelingStore,

	dice.NewCryptoSource,
	dice.NewLoggedRoller,
	wire.Bind(new(dice.Random), new(*dice.Roller)),
	ProvideCalculator,
	ProvideCurve,
	ProvideLevelingRules,
	ProvidePartyRules,
	ProvideFloor,
	ProvideRespawn,
	ProvideLoot,
	ProvideTicks,

	character.NewLocks,
	npc.NewManager,
	session.NewManager,
	inventory.NewEquipment,
	leveling.NewEngine,
	party.NewRegistry,
	party.NewDistributor,
	NewPresence,
	wire.Struct(new(DeathDeps), "*"),
	NewDeathHandler,
	NewCombatHandler,
	NewWorldTasks,
	NewGameServiceServer,
	wire.Struct(new(App), "*"),

	wire.Bind(new(inventory.Blocker), new(*world.Manager)),
	wire.Bind(new(Notifier), new(*session.Manager)),
	wire.Bind(new(leveling.Notifier), new(*session.Manager)),
	wire.Bind(new(Locator), new(*session.Manager)),
	wire.Bind(new(EquipmentService), new(*inventory.Equipment)),
	wire.Bind(new(ItemCatalog), new(*inventory.Catalog)),
	wire.Bind(new(Floor), new(*inventory.FloorManager)),
	wire.Bind(new(LootProvider), new(*npc.LootTables)),
	wire.Bind(new(RespawnScheduler), new(*npc.RespawnManager)),
	wire.Bind(new(PartyLookup), new(*party.Registry)),
	wire.Bind(new(PartyDistributor), new(*party.Distributor)),
	wire.Bind(new(party.Crediter), new(*leveling.Engine)),
	wire.Bind(new(party.Presence), new(*Presence)),
	wire.Bind(new(Reaper), new(*DeathHandler)),
	wire.Bind(new(PooledWithdrawer), new(*party.Distributor)),
)

// ProvideCalculator builds the combat calculator from the configured ruleset.
func ProvideCalculator(cfg config.Config, rng dice.Random) *combat.Calculator {
	return combat.NewCalculator(cfg.Combat.Ruleset(), rng)
}

// ProvideLevelingRules returns the configured resource growth rules.
func ProvideLevelingRules(cfg config.Config) leveling.Rules { return cfg.Leveling.Rules() }

// ProvidePartyRules returns the configured party rules.
func ProvidePartyRules(cfg config.Config) party.Rules { return cfg.Party.Rules() }

// ProvideCurve selects the level curve named by cfg.Leveling.Curve.
//
// Postcondition: the cleanup closes a Lua curve's VM; it is non-nil whenever
// err is nil.
func ProvideCurve(cfg config.Config, logger *zap.Logger) (leveling.Curve, func(), error) {
	switch cfg.Leveling.Curve {
	case "table":
		c, err := leveling.LoadTableCurve(cfg.Content.ExpTable)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	case "lua":
		c, err := scripting.LoadCurve(cfg.Content.CurveScript, cfg.Leveling.ScriptInstructionLimit, leveling.DefaultCurve(), logger.Named("curve"))
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "default", "":
		return leveling.DefaultCurve(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown level curve %q", cfg.Leveling.Curve)
	}
}

// ProvideFloor builds the ground item tracker over the world's collision data.
func ProvideFloor(cfg config.Config, blocker inventory.Blocker) *inventory.FloorManager {
	return inventory.NewFloorManager(blocker, cfg.Drops.FreeTileBudget, cfg.Drops.GroundItemTTL)
}

// ProvideRespawn builds the respawn manager over the loaded spawn points.
func ProvideRespawn(c *Content) *npc.RespawnManager {
	return npc.NewRespawnManager(c.Spawns, c.Templates)
}

// ProvideLoot indexes the loaded loot tables.
func ProvideLoot(c *Content, rng dice.Random) *npc.LootTables {
	return npc.NewLootTables(c.Loot, rng)
}

// ProvideTicks creates the tick loop with every world task registered.
func ProvideTicks(cfg config.Config, tasks *WorldTasks) *TickManager {
	tm := NewTickManager(cfg.GameServer.TickInterval)
	tasks.Register(tm)
	return tm
}
