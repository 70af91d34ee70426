package gameserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// DeathHandler removes a dead NPC from the world and pays out its rewards.
//
// Every step after the state transition is best-effort: failures are logged
// under the death event ID and the remaining steps still run.
type DeathHandler struct {
	npcs        *npc.Manager
	npcStore    NpcStore
	notify      Notifier
	parties     PartyLookup
	distributor PartyDistributor
	credit      party.Crediter
	calc        *combat.Calculator
	floor       Floor
	catalog     ItemCatalog
	loot        LootProvider
	respawn     RespawnScheduler
	logger      *zap.Logger
}

// DeathDeps bundles the collaborators of a DeathHandler. Loot, Respawn and
// NpcStore may be nil; the steps that need them are then skipped.
type DeathDeps struct {
	Npcs        *npc.Manager
	NpcStore    NpcStore
	Notify      Notifier
	Parties     PartyLookup
	Distributor PartyDistributor
	Credit      party.Crediter
	Calc        *combat.Calculator
	Floor       Floor
	Catalog     ItemCatalog
	Loot        LootProvider
	Respawn     RespawnScheduler
}

// NewDeathHandler creates a DeathHandler.
//
// Precondition: Npcs, Notify, Parties, Distributor, Credit, Calc, Floor,
// Catalog and logger must be non-nil.
func NewDeathHandler(deps DeathDeps, logger *zap.Logger) *DeathHandler {
	return &DeathHandler{
		npcs:        deps.Npcs,
		npcStore:    deps.NpcStore,
		notify:      deps.Notify,
		parties:     deps.Parties,
		distributor: deps.Distributor,
		credit:      deps.Credit,
		calc:        deps.Calc,
		floor:       deps.Floor,
		catalog:     deps.Catalog,
		loot:        deps.Loot,
		respawn:     deps.Respawn,
		logger:      logger,
	}
}

// HandleNpcDeath moves inst from Dying to Removed and distributes its rewards.
//
// Precondition: inst must be Dying; the caller must not hold any player lock.
// Postcondition: returns npc.ErrNotAlive without side effects unless this
// call performed the Dying → Removed transition. Otherwise the instance is
// gone from the world, experience went to the killer or their party (none
// when killerID is empty), and the gold and loot that found a free tile lie
// on the ground.
func (h *DeathHandler) HandleNpcDeath(ctx context.Context, inst *npc.Instance, killerID string, rolledExp int, reason string) (combat.DeathOutcome, error) {
	if !inst.MarkRemoved() {
		return combat.DeathOutcome{}, fmt.Errorf("handling death of %s: %w", inst.ID, npc.ErrNotAlive)
	}

	out := combat.DeathOutcome{EventID: uuid.NewString(), Experience: map[string]int{}}
	log := h.logger.With(
		zap.String("event_id", out.EventID),
		zap.String("npc", inst.ID),
		zap.String("killer", killerID),
		zap.String("reason", reason),
	)
	pos := inst.Position()

	h.removeFromWorld(ctx, inst, pos, log)
	h.rewardExperience(ctx, inst, killerID, rolledExp, pos, &out, log)
	h.dropGold(inst, pos, &out, log)
	h.dropLoot(inst, pos, &out, log)

	if h.respawn != nil {
		h.respawn.ScheduleRespawn(inst)
		out.RespawnScheduled = true
	}

	log.Info("npc death handled",
		zap.Int("gold", out.Gold),
		zap.Int("loot", len(out.Loot)),
		zap.Int("recipients", len(out.Experience)),
	)
	return out, nil
}

func (h *DeathHandler) removeFromWorld(ctx context.Context, inst *npc.Instance, pos combat.Position, log *zap.Logger) {
	if inst.DeathEffect != 0 {
		h.notify.Broadcast(pos.MapID, session.Notice{
			Kind: session.KindEffect,
			Fields: map[string]any{
				"effect":    inst.DeathEffect,
				"object_id": inst.ID,
				"x":         pos.X,
				"y":         pos.Y,
			},
		})
	}
	h.notify.Broadcast(pos.MapID, session.Notice{
		Kind:   session.KindRemove,
		Fields: map[string]any{"object_id": inst.ID},
	})
	if err := h.npcs.Remove(inst.ID); err != nil {
		log.Warn("removing npc from world", zap.Error(err))
	}
	if h.npcStore != nil {
		if err := h.npcStore.DeleteNpc(ctx, inst.ID); err != nil {
			log.Warn("deleting npc state", zap.Error(err))
		}
	}
}

func (h *DeathHandler) rewardExperience(ctx context.Context, inst *npc.Instance, killerID string, rolledExp int, pos combat.Position, out *combat.DeathOutcome, log *zap.Logger) {
	if killerID == "" {
		log.Debug("no killer, experience not awarded")
		return
	}
	if p, ok := h.parties.GetPartyOf(killerID); ok {
		shares := h.distributor.Distribute(ctx, rolledExp, pos.MapID, pos.X, pos.Y, p)
		total := 0
		for uid, share := range shares {
			out.Experience[uid] = share
			total += share
			if uid != killerID {
				h.notify.Notify(uid, session.Message("Your party killed %s. You earned %d experience.", inst.Name, share))
			}
		}
		h.notify.Notify(killerID, session.Message("You killed %s, your party earned %d experience.", inst.Name, total))
		log.Debug("party experience distributed", zap.String("party", p.Snapshot().ID), zap.Int("total", total))
		return
	}

	h.notify.Notify(killerID, session.Message("You killed %s.", inst.Name))
	if rolledExp <= 0 {
		return
	}
	if _, err := h.credit.CreditExperience(ctx, killerID, rolledExp); err != nil {
		log.Warn("crediting experience", zap.Int("amount", rolledExp), zap.Error(err))
		return
	}
	out.Experience[killerID] = rolledExp
}

func (h *DeathHandler) goldAmount(inst *npc.Instance) int {
	if inst.GoldByLevel {
		return h.calc.CalculateGoldDrop(inst.Level)
	}
	return h.calc.RollGold(inst.Gold.Min, inst.Gold.Max)
}

func (h *DeathHandler) dropGold(inst *npc.Instance, pos combat.Position, out *combat.DeathOutcome, log *zap.Logger) {
	amount := h.goldAmount(inst)
	if amount <= 0 {
		return
	}
	item := inventory.GroundItem{ItemID: inventory.GoldItemID, Name: "Gold", Quantity: amount}
	if def, ok := h.catalog.Displayable(inventory.GoldItemID); ok {
		item.Name, item.Graphic = def.Name, def.Graphic
	}
	placed, ok := h.floor.DropNear(pos.MapID, pos.X, pos.Y, item)
	if !ok {
		log.Info("no free tile for gold drop", zap.Int("amount", amount))
		return
	}
	h.broadcastGroundItem(placed)
	out.Gold = amount
}

func (h *DeathHandler) dropLoot(inst *npc.Instance, pos combat.Position, out *combat.DeathOutcome, log *zap.Logger) {
	if h.loot == nil || inst.LootTable == "" {
		return
	}
	for _, drop := range h.loot.DropsFor(inst.LootTable) {
		def, ok := h.catalog.Displayable(drop.ItemID)
		if !ok {
			log.Debug("skipping undisplayable loot", zap.String("item", drop.ItemID))
			continue
		}
		placed, ok := h.floor.DropNear(pos.MapID, pos.X, pos.Y, inventory.GroundItem{
			ItemID:   def.ID,
			Name:     def.Name,
			Graphic:  def.Graphic,
			Quantity: drop.Quantity,
		})
		if !ok {
			log.Info("no free tile for loot drop", zap.String("item", drop.ItemID))
			continue
		}
		h.broadcastGroundItem(placed)
		out.Loot = append(out.Loot, def.ID)
	}
}

func (h *DeathHandler) broadcastGroundItem(it inventory.GroundItem) {
	h.notify.Broadcast(it.MapID, session.Notice{
		Kind: session.KindGroundItem,
		Fields: map[string]any{
			"ground_id": it.ID,
			"item":      it.ItemID,
			"name":      it.Name,
			"graphic":   it.Graphic,
			"quantity":  it.Quantity,
			"x":         it.X,
			"y":         it.Y,
		},
	})
}
