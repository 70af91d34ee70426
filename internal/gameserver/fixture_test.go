package gameserver_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/dice/dicetest"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
	"github.com/cory-johannsen/realm/internal/game/world"
	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/storage/memory"
)

const testMap = 1

// recorder captures every notice sent through the Notifier port.
type recorder struct {
	mu         sync.Mutex
	notices    map[string][]session.Notice
	broadcasts map[int][]session.Notice
}

func newRecorder() *recorder {
	return &recorder{notices: map[string][]session.Notice{}, broadcasts: map[int][]session.Notice{}}
}

func (r *recorder) Notify(uid string, n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[uid] = append(r.notices[uid], n)
}

func (r *recorder) Broadcast(mapID int, n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts[mapID] = append(r.broadcasts[mapID], n)
}

func (r *recorder) messages(uid string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices[uid] {
		if n.Kind == session.KindMessage {
			out = append(out, n.Text)
		}
	}
	return out
}

func (r *recorder) broadcastsOf(mapID int, kind session.Kind) []session.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.Notice
	for _, n := range r.broadcasts[mapID] {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// creditSpy records every experience credit.
type creditSpy struct {
	mu    sync.Mutex
	calls map[string][]int
}

func (c *creditSpy) CreditExperience(_ context.Context, userID string, amount int) (leveling.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string][]int{}
	}
	c.calls[userID] = append(c.calls[userID], amount)
	return leveling.Result{Total: amount, OldLevel: 1, NewLevel: 1}, nil
}

func (c *creditSpy) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, amounts := range c.calls {
		n += len(amounts)
	}
	return n
}

func (c *creditSpy) of(userID string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.calls[userID]...)
}

// distributorSpy wraps a real Distributor and counts calls.
type distributorSpy struct {
	inner *party.Distributor
	mu    sync.Mutex
	calls int
}

func (d *distributorSpy) Distribute(ctx context.Context, totalExp, mapID, x, y int, p *party.Party) map[string]int {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.inner.Distribute(ctx, totalExp, mapID, x, y, p)
}

type fixedLoot map[string][]npc.Drop

func (l fixedLoot) DropsFor(tableID string) []npc.Drop { return l[tableID] }

type respawnSpy struct {
	mu        sync.Mutex
	scheduled []string
}

func (r *respawnSpy) ScheduleRespawn(inst *npc.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, inst.ID)
}

type noEquipment struct{}

func (noEquipment) WeaponDamage(string) (int, bool)       { return 0, false }
func (noEquipment) ArmorReduction(string) (float64, bool) { return 0, false }

// harness wires a CombatHandler and DeathHandler over in-memory collaborators.
type harness struct {
	rng      *dicetest.Scripted
	world    *world.Map
	worlds   *world.Manager
	calc     *combat.Calculator
	store    *memory.Store
	sessions *session.Manager
	npcs     *npc.Manager
	floor    *inventory.FloorManager
	catalog  *inventory.Catalog
	registry *party.Registry
	notify   *recorder
	credit   *creditSpy
	dist     *distributorSpy
	respawn  *respawnSpy
	locks    *character.Locks
	death    *gameserver.DeathHandler
	handler  *gameserver.CombatHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	mp := world.NewMap(testMap, "Meadow", 20, 20)
	worlds, err := world.NewManager([]*world.Map{mp})
	require.NoError(t, err)

	h := &harness{
		rng:      dicetest.NewScripted(),
		world:    mp,
		worlds:   worlds,
		store:    memory.NewStore(),
		sessions: session.NewManager(logger),
		npcs:     npc.NewManager(),
		floor:    inventory.NewFloorManager(worlds, 9, 0),
		catalog:  inventory.NewCatalog(),
		notify:   newRecorder(),
		credit:   &creditSpy{},
		respawn:  &respawnSpy{},
		locks:    character.NewLocks(),
	}
	h.calc = combat.NewCalculator(combat.DefaultRuleset(), h.rng)
	require.NoError(t, h.catalog.Register(&inventory.ItemDef{ID: "fang", Name: "Wolf Fang", Kind: inventory.KindJunk, Graphic: 12}))
	require.NoError(t, h.catalog.Register(&inventory.ItemDef{ID: "pelt", Name: "Pelt", Kind: inventory.KindJunk}))

	h.registry = party.NewRegistry(party.DefaultRules(), h.store, logger)
	presence := gameserver.NewPresence(h.sessions, h.store)
	h.dist = &distributorSpy{inner: party.NewDistributor(h.registry, h.credit, presence, logger)}

	h.death = gameserver.NewDeathHandler(gameserver.DeathDeps{
		Npcs:        h.npcs,
		NpcStore:    h.store,
		Notify:      h.notify,
		Parties:     h.registry,
		Distributor: h.dist,
		Credit:      h.credit,
		Calc:        h.calc,
		Floor:       h.floor,
		Catalog:     h.catalog,
		Loot:        fixedLoot{"wolf": {{ItemID: "fang", Quantity: 1}, {ItemID: "pelt", Quantity: 1}}},
		Respawn:     h.respawn,
	}, logger)
	h.handler = gameserver.NewCombatHandler(
		h.calc, h.npcs, h.store, h.store, noEquipment{}, h.notify, h.sessions, h.death, h.locks, logger,
	)
	return h
}

func wolfTemplate(maxHealth int) *npc.Template {
	return &npc.Template{
		ID:        "wolf",
		Name:      "Wolf",
		Level:     5,
		MaxHealth: maxHealth,
		Hostile:   true,
		Gold:      npc.GoldRange{Min: 10, Max: 50},
	}
}

func (h *harness) spawnWolf(t *testing.T, maxHealth, x, y int) *npc.Instance {
	t.Helper()
	inst, err := h.npcs.Spawn(wolfTemplate(maxHealth), npc.SpawnPoint{TemplateID: "wolf", MapID: testMap, X: x, Y: y, Max: 1})
	require.NoError(t, err)
	return inst
}

func (h *harness) addPlayer(t *testing.T, uid string, level, health, x, y int) {
	t.Helper()
	h.store.PutCharacter(character.Stats{
		ID:    uid,
		Name:  uid,
		Level: level,
		Resources: character.Resources{
			Health: health, MaxHealth: 100, Mana: 10, MaxMana: 100, Stamina: 100, MaxStamina: 100,
		},
		Attributes: character.Attributes{Strength: 14, Agility: 10, Intelligence: 10, Charisma: 10, Constitution: 10},
	})
	_, err := h.sessions.AddPlayer(uid, uid, combat.Position{MapID: testMap, X: x, Y: y})
	require.NoError(t, err)
}

func (h *harness) groundItems(itemID string) []inventory.GroundItem {
	var out []inventory.GroundItem
	for _, it := range h.floor.ItemsOnMap(testMap) {
		if it.ItemID == itemID {
			out = append(out, it)
		}
	}
	return out
}
