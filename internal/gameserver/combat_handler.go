package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// DamageRequest asks for a fixed amount of damage to be applied to one
// target. Exactly one of TargetNpc and TargetPlayer must be set.
type DamageRequest struct {
	// SourceID is the player credited with a kill. When empty, a kill
	// awards no experience.
	SourceID     string
	SourceName   string
	TargetNpc    string
	TargetPlayer string
	Amount       int
	Source       combat.DamageSource
}

// CombatHandler resolves attacks between players and NPCs.
//
// Every NPC health mutation goes through npc.Instance.ApplyDamage, so at most
// one attack observes the lethal transition. Every player health mutation
// holds that player's character lock.
type CombatHandler struct {
	calc      *combat.Calculator
	npcs      *npc.Manager
	chars     CharacterStore
	npcStore  NpcStore
	equipment EquipmentService
	notify    Notifier
	locator   Locator
	reaper    Reaper
	locks     *character.Locks
	logger    *zap.Logger
	now       func() time.Time
}

// NewCombatHandler creates a CombatHandler.
//
// Precondition: every argument except npcStore must be non-nil.
func NewCombatHandler(
	calc *combat.Calculator,
	npcs *npc.Manager,
	chars CharacterStore,
	npcStore NpcStore,
	equipment EquipmentService,
	notify Notifier,
	locator Locator,
	reaper Reaper,
	locks *character.Locks,
	logger *zap.Logger,
) *CombatHandler {
	return &CombatHandler{
		calc:      calc,
		npcs:      npcs,
		chars:     chars,
		npcStore:  npcStore,
		equipment: equipment,
		notify:    notify,
		locator:   locator,
		reaper:    reaper,
		locks:     locks,
		logger:    logger,
		now:       time.Now,
	}
}

// Attack is the inbound attack command: attackerID swings at the NPC
// instance npcInstanceID.
//
// Postcondition: returns ErrAttackerNotFound when the attacker is not
// connected, ErrTargetGone when the instance is not alive, and ErrOutOfRange
// when the target is on another map or beyond weapon reach (Chebyshev).
func (h *CombatHandler) Attack(ctx context.Context, attackerID, npcInstanceID string) (combat.AttackOutcome, error) {
	pos, ok := h.locator.Position(attackerID)
	if !ok {
		return combat.AttackOutcome{}, fmt.Errorf("attack by %s: %w", attackerID, combat.ErrAttackerNotFound)
	}
	inst, ok := h.npcs.Get(npcInstanceID)
	if !ok || !inst.Alive() {
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", npcInstanceID, combat.ErrTargetGone)
	}
	if !combat.CanAttack(pos, inst.Position(), h.calc.Rules().WeaponReach) {
		h.notify.Notify(attackerID, session.Message("%s is out of reach.", inst.Name))
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", npcInstanceID, combat.ErrOutOfRange)
	}
	return h.PlayerAttackNpc(ctx, attackerID, inst)
}

// PlayerAttackNpc resolves one melee swing of attackerID against inst.
//
// Postcondition: a dodge mutates nothing. A hit lowers the NPC's health; the
// call that brings it to zero hands the instance to the death handler.
func (h *CombatHandler) PlayerAttackNpc(ctx context.Context, attackerID string, inst *npc.Instance) (combat.AttackOutcome, error) {
	if !inst.Attackable {
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", inst.ID, combat.ErrTargetNotAttackable)
	}
	stats, err := h.chars.LoadStats(ctx, attackerID)
	if err != nil {
		h.logger.Debug("attacker stats unavailable", zap.String("attacker", attackerID), zap.Error(err))
		return combat.AttackOutcome{}, fmt.Errorf("attack by %s: %w", attackerID, combat.ErrAttackerNotFound)
	}
	now := h.now()
	if !stats.Alive() || stats.Modifiers.Paralyzed(now) {
		h.notify.Notify(attackerID, session.Message("You cannot move!"))
		return combat.AttackOutcome{}, fmt.Errorf("attack by %s: %w", attackerID, combat.ErrAttackerIncapacitated)
	}
	if !inst.Alive() {
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", inst.ID, combat.ErrTargetGone)
	}

	rules := h.calc.Rules()
	weapon, ok := h.equipment.WeaponDamage(attackerID)
	if !ok {
		weapon = rules.FallbackWeaponDamage
	}
	eff := stats.Effective(now)
	res := h.calc.CalculatePlayerDamage(eff.Strength, weapon, inst.Level, inst.Level*rules.NpcAgilityPerLevel)
	if res.Dodged {
		h.notify.Notify(attackerID, session.Message("%s dodges your attack.", inst.Name))
		return combat.AttackOutcome{Dodged: true, TargetHealth: currentHealth(inst)}, nil
	}
	return h.damageNpc(ctx, attackerID, inst, res.Damage, res.Critical, combat.SourceMelee)
}

// NpcAttackPlayer resolves one swing of inst against targetID.
//
// Postcondition: returns ErrTargetNotFound when the target's stats cannot be
// loaded. The target's new health is persisted before returning.
func (h *CombatHandler) NpcAttackPlayer(ctx context.Context, inst *npc.Instance, targetID string) (combat.AttackOutcome, error) {
	if !inst.Alive() {
		return combat.AttackOutcome{}, fmt.Errorf("attack by %s: %w", inst.ID, combat.ErrAttackerIncapacitated)
	}
	armor, ok := h.equipment.ArmorReduction(targetID)
	if !ok {
		armor = h.calc.Rules().FallbackArmorReduction
	}
	return h.damagePlayer(ctx, targetID, inst.Name, func() int {
		return h.calc.CalculateNpcDamage(inst.Level, armor)
	})
}

// ApplyDamage applies a fixed amount of damage from a spell or melee
// collaborator through the same mutation and death detection as attacks.
func (h *CombatHandler) ApplyDamage(ctx context.Context, req DamageRequest) (combat.AttackOutcome, error) {
	switch {
	case req.TargetNpc != "" && req.TargetPlayer != "":
		return combat.AttackOutcome{}, errors.New("damage request names two targets")
	case req.TargetNpc != "":
		inst, ok := h.npcs.Get(req.TargetNpc)
		if !ok {
			return combat.AttackOutcome{}, fmt.Errorf("damage to %s: %w", req.TargetNpc, combat.ErrTargetGone)
		}
		if !inst.Attackable {
			return combat.AttackOutcome{}, fmt.Errorf("damage to %s: %w", inst.ID, combat.ErrTargetNotAttackable)
		}
		return h.damageNpc(ctx, req.SourceID, inst, max(req.Amount, 0), false, req.Source)
	case req.TargetPlayer != "":
		name := req.SourceName
		if name == "" {
			name = req.Source.String()
		}
		return h.damagePlayer(ctx, req.TargetPlayer, name, func() int { return max(req.Amount, 0) })
	default:
		return combat.AttackOutcome{}, errors.New("damage request has no target")
	}
}

// damageNpc subtracts dmg from inst and, on the lethal transition, rolls
// experience and hands the instance to the reaper. No player lock is held.
func (h *CombatHandler) damageNpc(ctx context.Context, attackerID string, inst *npc.Instance, dmg int, crit bool, source combat.DamageSource) (combat.AttackOutcome, error) {
	remaining, died, err := inst.ApplyDamage(dmg)
	if err != nil {
		return combat.AttackOutcome{}, fmt.Errorf("damage to %s: %w", inst.ID, combat.ErrTargetGone)
	}
	out := combat.AttackOutcome{Damage: dmg, Critical: crit, TargetDied: died, TargetHealth: remaining}

	if attackerID != "" {
		if crit {
			h.notify.Notify(attackerID, session.Message("Critical hit! You hit %s for %d damage.", inst.Name, dmg))
		} else {
			h.notify.Notify(attackerID, session.Message("You hit %s for %d damage.", inst.Name, dmg))
		}
	}

	if !died {
		if h.npcStore != nil {
			_, maxHealth := inst.Health()
			if err := h.npcStore.SaveNpcHealth(ctx, inst.ID, remaining, maxHealth); err != nil {
				h.logger.Warn("persisting npc health", zap.String("npc", inst.ID), zap.Error(err))
			}
		}
		return out, nil
	}

	exp := 0
	if attackerID != "" {
		exp = h.calc.CalculateExperience(inst.Level)
	}
	if _, err := h.reaper.HandleNpcDeath(ctx, inst, attackerID, exp, source.String()); err != nil {
		h.logger.Error("handling npc death", zap.String("npc", inst.ID), zap.Error(err))
	}
	return out, nil
}

// damagePlayer applies roll() damage to targetID under the target's lock.
// roll is evaluated after the lock is held and the target is known alive.
func (h *CombatHandler) damagePlayer(ctx context.Context, targetID, attackerName string, roll func() int) (combat.AttackOutcome, error) {
	unlock := h.locks.Lock(targetID)
	defer unlock()

	stats, err := h.chars.LoadStats(ctx, targetID)
	if err != nil {
		h.logger.Debug("target stats unavailable", zap.String("target", targetID), zap.Error(err))
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", targetID, combat.ErrTargetNotFound)
	}
	if !stats.Alive() {
		return combat.AttackOutcome{}, fmt.Errorf("attack on %s: %w", targetID, combat.ErrTargetGone)
	}

	res := stats.Resources
	res.Health = max(res.Health-max(roll(), 0), 0)
	if err := h.chars.SaveResources(ctx, targetID, res); err != nil {
		return combat.AttackOutcome{}, fmt.Errorf("saving health of %s: %w", targetID, err)
	}

	taken := stats.Resources.Health - res.Health
	out := combat.AttackOutcome{Damage: taken, TargetDied: res.Health == 0, TargetHealth: res.Health}
	h.notify.Notify(targetID, session.Message("%s hits you for %d damage.", attackerName, taken))
	h.notify.Notify(targetID, resourceNotice(res))
	if out.TargetDied {
		h.notify.Notify(targetID, session.Message("You have been slain by %s.", attackerName))
		h.logger.Info("player slain", zap.String("player", targetID), zap.String("by", attackerName))
	}
	return out, nil
}

func currentHealth(inst *npc.Instance) int {
	cur, _ := inst.Health()
	return cur
}

func resourceNotice(r character.Resources) session.Notice {
	return session.Notice{Kind: session.KindStats, Fields: map[string]any{
		"health":      r.Health,
		"max_health":  r.MaxHealth,
		"mana":        r.Mana,
		"max_mana":    r.MaxMana,
		"stamina":     r.Stamina,
		"max_stamina": r.MaxStamina,
	}}
}
