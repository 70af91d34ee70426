package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// ErrUnknownEffect is returned for an effect kind the pipeline does not handle.
var ErrUnknownEffect = errors.New("unknown effect")

// EffectKind names what an item or spell effect does to a player.
type EffectKind string

const (
	EffectHeal           EffectKind = "heal"
	EffectRestoreMana    EffectKind = "restore_mana"
	EffectRestoreStamina EffectKind = "restore_stamina"
	EffectDamage         EffectKind = "damage"
	EffectBoost          EffectKind = "boost"
	EffectPoison         EffectKind = "poison"
	EffectParalyze       EffectKind = "paralyze"
	EffectInvisible      EffectKind = "invisible"
	EffectCure           EffectKind = "cure"
)

// Effect is one application of an item or spell to a player.
type Effect struct {
	Kind   EffectKind
	Amount int
	// Attribute is the boosted attribute for EffectBoost.
	Attribute character.Attribute
	// Duration applies to boosts and status effects.
	Duration time.Duration
	// Source names the item or spell for player messages.
	Source string
}

// ApplyEffect applies e to userID under the player's lock.
//
// Postcondition: an unrecognized kind mutates nothing, surfaces a neutral
// message, and returns ErrUnknownEffect. A slain player is not affected and
// combat.ErrTargetGone is returned. Damage effects go through the same health
// mutation and death detection as attacks. Resources stay clamped to their
// maxima.
func (h *CombatHandler) ApplyEffect(ctx context.Context, userID string, e Effect) error {
	if !knownEffect(e.Kind) {
		h.notify.Notify(userID, session.Message("Nothing happens."))
		h.logger.Warn("unknown effect", zap.String("user", userID), zap.String("kind", string(e.Kind)))
		return fmt.Errorf("applying %q to %s: %w", e.Kind, userID, ErrUnknownEffect)
	}
	if e.Kind == EffectDamage {
		source := e.Source
		if source == "" {
			source = "Something"
		}
		if _, err := h.damagePlayer(ctx, userID, source, func() int { return e.Amount }); err != nil {
			return fmt.Errorf("applying %q to %s: %w", e.Kind, userID, err)
		}
		return nil
	}

	unlock := h.locks.Lock(userID)
	defer unlock()

	stats, err := h.chars.LoadStats(ctx, userID)
	if err != nil {
		return fmt.Errorf("applying %q to %s: %w", e.Kind, userID, err)
	}
	if !stats.Alive() {
		h.notify.Notify(userID, session.Message("Nothing happens."))
		return fmt.Errorf("applying %q to %s: %w", e.Kind, userID, combat.ErrTargetGone)
	}
	now := h.now()
	res, mods := stats.Resources, stats.Modifiers
	amount := max(e.Amount, 0)

	switch e.Kind {
	case EffectHeal:
		res.Health += amount
	case EffectRestoreMana:
		res.Mana += amount
	case EffectRestoreStamina:
		res.Stamina += amount
	case EffectBoost:
		mods.Boosts = append(mods.Boosts, character.Boost{
			Attribute: e.Attribute,
			Amount:    e.Amount,
			ExpiresAt: now.Add(e.Duration),
		})
	case EffectPoison:
		mods.PoisonedUntil = now.Add(e.Duration)
	case EffectParalyze:
		mods.ParalyzedUntil = now.Add(e.Duration)
	case EffectInvisible:
		mods.InvisibleUntil = now.Add(e.Duration)
	case EffectCure:
		mods.PoisonedUntil = time.Time{}
		mods.ParalyzedUntil = time.Time{}
	}
	res = res.Clamp()

	if res != stats.Resources {
		if err := h.chars.SaveResources(ctx, userID, res); err != nil {
			return fmt.Errorf("saving resources of %s: %w", userID, err)
		}
		h.notify.Notify(userID, resourceNotice(res))
	}
	if e.Kind == EffectBoost || e.Kind == EffectPoison || e.Kind == EffectParalyze ||
		e.Kind == EffectInvisible || e.Kind == EffectCure {
		if err := h.chars.SaveModifiers(ctx, userID, mods.Prune(now)); err != nil {
			return fmt.Errorf("saving modifiers of %s: %w", userID, err)
		}
	}
	h.notify.Notify(userID, effectMessage(e, stats.Resources, res))
	return nil
}

func knownEffect(k EffectKind) bool {
	switch k {
	case EffectHeal, EffectRestoreMana, EffectRestoreStamina, EffectDamage,
		EffectBoost, EffectPoison, EffectParalyze, EffectInvisible, EffectCure:
		return true
	}
	return false
}

func effectMessage(e Effect, before, after character.Resources) session.Notice {
	switch e.Kind {
	case EffectHeal:
		return session.Message("You recover %d health.", after.Health-before.Health)
	case EffectRestoreMana:
		return session.Message("You recover %d mana.", after.Mana-before.Mana)
	case EffectRestoreStamina:
		return session.Message("You recover %d stamina.", after.Stamina-before.Stamina)
	case EffectBoost:
		return session.Message("Your %s surges.", e.Attribute)
	case EffectPoison:
		return session.Message("You have been poisoned!")
	case EffectParalyze:
		return session.Message("You cannot move!")
	case EffectInvisible:
		return session.Message("You fade from sight.")
	default:
		return session.Message("You feel better.")
	}
}
