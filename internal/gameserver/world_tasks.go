package gameserver

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// Tick task names.
const (
	TaskAggression = "aggression"
	TaskGround     = "ground"
	TaskModifiers  = "modifiers"
	TaskRespawn    = "respawn"
)

// WorldTasks holds the time-driven world upkeep run by the tick loop:
// respawns, ground item expiry, modifier pruning, and hostile NPC swings.
type WorldTasks struct {
	npcs     *npc.Manager
	respawn  *npc.RespawnManager
	floor    *inventory.FloorManager
	sessions *session.Manager
	chars    CharacterStore
	npcStore NpcStore
	combat   *CombatHandler
	locks    *character.Locks
	logger   *zap.Logger
}

// NewWorldTasks creates WorldTasks.
//
// Precondition: every argument except npcStore must be non-nil.
func NewWorldTasks(
	npcs *npc.Manager,
	respawn *npc.RespawnManager,
	floor *inventory.FloorManager,
	sessions *session.Manager,
	chars CharacterStore,
	npcStore NpcStore,
	handler *CombatHandler,
	locks *character.Locks,
	logger *zap.Logger,
) *WorldTasks {
	return &WorldTasks{
		npcs:     npcs,
		respawn:  respawn,
		floor:    floor,
		sessions: sessions,
		chars:    chars,
		npcStore: npcStore,
		combat:   handler,
		locks:    locks,
		logger:   logger,
	}
}

// Register adds every task to tm.
func (w *WorldTasks) Register(tm *TickManager) {
	tm.RegisterTick(TaskRespawn, w.Respawn)
	tm.RegisterTick(TaskGround, w.ExpireGround)
	tm.RegisterTick(TaskModifiers, w.PruneModifiers)
	tm.RegisterTick(TaskAggression, w.Aggression)
}

// Respawn creates every NPC whose respawn delay has elapsed and announces it.
func (w *WorldTasks) Respawn(ctx context.Context, now time.Time) {
	for _, inst := range w.respawn.Tick(now, w.npcs) {
		cur, maxHealth := inst.Health()
		if w.npcStore != nil {
			if err := w.npcStore.SaveNpcHealth(ctx, inst.ID, cur, maxHealth); err != nil {
				w.logger.Warn("persisting respawned npc", zap.String("npc", inst.ID), zap.Error(err))
			}
		}
		pos := inst.Position()
		w.sessions.Broadcast(pos.MapID, session.Notice{Kind: session.KindSpawn, Fields: map[string]any{
			"object_id": inst.ID,
			"template":  inst.TemplateID,
			"name":      inst.Name,
			"x":         pos.X,
			"y":         pos.Y,
		}})
		w.logger.Debug("npc respawned", zap.String("npc", inst.ID))
	}
}

// RestoreHealth reapplies stored health to freshly populated instances.
func (w *WorldTasks) RestoreHealth(ctx context.Context, insts []*npc.Instance) {
	if w.npcStore == nil {
		return
	}
	for _, inst := range insts {
		cur, _, ok, err := w.npcStore.LoadNpcHealth(ctx, inst.ID)
		if err != nil {
			w.logger.Warn("loading npc health", zap.String("npc", inst.ID), zap.Error(err))
			continue
		}
		if ok {
			inst.RestoreHealth(cur)
		}
	}
}

// ExpireGround removes ground items past their expiry and announces each.
func (w *WorldTasks) ExpireGround(_ context.Context, now time.Time) {
	for _, it := range w.floor.Expire(now) {
		w.sessions.Broadcast(it.MapID, session.Notice{
			Kind:   session.KindGroundExpire,
			Fields: map[string]any{"ground_id": it.ID, "x": it.X, "y": it.Y},
		})
	}
}

// PruneModifiers drops expired boosts and statuses of connected players.
func (w *WorldTasks) PruneModifiers(ctx context.Context, now time.Time) {
	for _, uid := range w.sessions.PlayerUIDs() {
		w.pruneOne(ctx, uid, now)
	}
}

func (w *WorldTasks) pruneOne(ctx context.Context, uid string, now time.Time) {
	unlock := w.locks.Lock(uid)
	defer unlock()

	stats, err := w.chars.LoadStats(ctx, uid)
	if err != nil {
		return
	}
	pruned := stats.Modifiers.Prune(now)
	if modifiersEqual(pruned, stats.Modifiers) {
		return
	}
	if err := w.chars.SaveModifiers(ctx, uid, pruned); err != nil {
		w.logger.Warn("saving pruned modifiers", zap.String("user", uid), zap.Error(err))
		return
	}
	if len(pruned.Boosts) < len(stats.Modifiers.Boosts) {
		w.sessions.Notify(uid, session.Message("A temporary enhancement wears off."))
	}
	if !stats.Modifiers.ParalyzedUntil.IsZero() && pruned.ParalyzedUntil.IsZero() {
		w.sessions.Notify(uid, session.Message("You can move again."))
	}
}

// Aggression lets each hostile NPC swing at one visible player within reach.
func (w *WorldTasks) Aggression(ctx context.Context, now time.Time) {
	reach := w.combat.calc.Rules().WeaponReach
	for _, inst := range w.npcs.All() {
		if !inst.Hostile || !inst.Alive() {
			continue
		}
		target, ok := w.pickTarget(ctx, inst, reach, now)
		if !ok {
			continue
		}
		if _, err := w.combat.NpcAttackPlayer(ctx, inst, target); err != nil {
			w.logger.Debug("npc attack skipped", zap.String("npc", inst.ID), zap.String("target", target), zap.Error(err))
		}
	}
}

func (w *WorldTasks) pickTarget(ctx context.Context, inst *npc.Instance, reach int, now time.Time) (string, bool) {
	pos := inst.Position()
	uids := w.sessions.PlayersOnMap(pos.MapID)
	slices.Sort(uids)
	for _, uid := range uids {
		ppos, ok := w.sessions.Position(uid)
		if !ok || !combat.CanAttack(pos, ppos, reach) {
			continue
		}
		stats, err := w.chars.LoadStats(ctx, uid)
		if err != nil || !stats.Alive() || stats.Modifiers.Invisible(now) {
			continue
		}
		return uid, true
	}
	return "", false
}

func modifiersEqual(a, b character.Modifiers) bool {
	return slices.Equal(a.Boosts, b.Boosts) &&
		a.PoisonedUntil.Equal(b.PoisonedUntil) &&
		a.ParalyzedUntil.Equal(b.ParalyzedUntil) &&
		a.InvisibleUntil.Equal(b.InvisibleUntil)
}
