package gameserver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/gameserver"
)

func TestApplyEffect_UnknownKindFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 50, 5, 5)
	before, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)

	err = h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: "teleport", Amount: 10})
	assert.ErrorIs(t, err, gameserver.ErrUnknownEffect)

	after, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"Nothing happens."}, h.notify.messages("aria"))
}

func TestApplyEffect_HealClampsToMaximum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 90, 5, 5)

	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: gameserver.EffectHeal, Amount: 50}))
	stats, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Resources.Health)
	assert.Contains(t, h.notify.messages("aria"), "You recover 10 health.")
}

func TestApplyEffect_DamageFloorsAtZero(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 15, 5, 5)

	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{
		Kind: gameserver.EffectDamage, Amount: 40, Source: "Poison Dart",
	}))
	stats, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.Zero(t, stats.Resources.Health)
	assert.Equal(t, []string{
		"Poison Dart hits you for 15 damage.",
		"You have been slain by Poison Dart.",
	}, h.notify.messages("aria"))
}

func TestApplyEffect_DamageMatchesApplyDamage(t *testing.T) {
	viaEffect := newHarness(t)
	viaDamage := newHarness(t)
	ctx := context.Background()
	viaEffect.addPlayer(t, "aria", 3, 15, 5, 5)
	viaDamage.addPlayer(t, "aria", 3, 15, 5, 5)

	require.NoError(t, viaEffect.handler.ApplyEffect(ctx, "aria", gameserver.Effect{
		Kind: gameserver.EffectDamage, Amount: 40, Source: "Poison Dart",
	}))
	out, err := viaDamage.handler.ApplyDamage(ctx, gameserver.DamageRequest{
		SourceName: "Poison Dart", TargetPlayer: "aria", Amount: 40,
	})
	require.NoError(t, err)
	assert.True(t, out.TargetDied)
	assert.Equal(t, 15, out.Damage)
	assert.Equal(t, viaDamage.notify.messages("aria"), viaEffect.notify.messages("aria"))
}

func TestApplyEffect_SlainPlayerIsNotRestored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 15, 5, 5)
	_, err := h.handler.ApplyDamage(ctx, gameserver.DamageRequest{
		SourceName: "Poison Dart", TargetPlayer: "aria", Amount: 40,
	})
	require.NoError(t, err)

	for _, kind := range []gameserver.EffectKind{
		gameserver.EffectHeal, gameserver.EffectRestoreMana, gameserver.EffectBoost, gameserver.EffectDamage,
	} {
		err := h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: kind, Amount: 30, Duration: time.Minute})
		assert.ErrorIs(t, err, combat.ErrTargetGone, "kind %s", kind)
	}
	stats, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.Zero(t, stats.Resources.Health)
	assert.Equal(t, 10, stats.Resources.Mana)
	assert.Empty(t, stats.Modifiers.Boosts)
}

func TestApplyEffect_BoostRaisesEffectiveAttribute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 100, 5, 5)

	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{
		Kind: gameserver.EffectBoost, Attribute: character.Agility, Amount: 3, Duration: time.Minute,
	}))
	stats, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	require.Len(t, stats.Modifiers.Boosts, 1)
	assert.Equal(t, 13, stats.Effective(time.Now()).Agility)
	assert.Equal(t, 10, stats.Effective(time.Now().Add(2*time.Minute)).Agility)
}

func TestApplyEffect_CureClearsStatuses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPlayer(t, "aria", 3, 100, 5, 5)

	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: gameserver.EffectPoison, Duration: time.Hour}))
	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: gameserver.EffectParalyze, Duration: time.Hour}))
	stats, err := h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.True(t, stats.Modifiers.Poisoned(time.Now()))
	assert.True(t, stats.Modifiers.Paralyzed(time.Now()))

	require.NoError(t, h.handler.ApplyEffect(ctx, "aria", gameserver.Effect{Kind: gameserver.EffectCure}))
	stats, err = h.store.LoadStats(ctx, "aria")
	require.NoError(t, err)
	assert.False(t, stats.Modifiers.Poisoned(time.Now()))
	assert.False(t, stats.Modifiers.Paralyzed(time.Now()))
}

func TestApplyEffect_UnknownPlayer(t *testing.T) {
	h := newHarness(t)
	err := h.handler.ApplyEffect(context.Background(), "ghost", gameserver.Effect{Kind: gameserver.EffectHeal, Amount: 5})
	assert.ErrorIs(t, err, character.ErrNotFound)
}

func TestPropertyRestoreEffectsStayWithinMaxima(t *testing.T) {
	kinds := []gameserver.EffectKind{
		gameserver.EffectHeal, gameserver.EffectRestoreMana, gameserver.EffectRestoreStamina, gameserver.EffectDamage,
	}
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.addPlayer(t, "aria", 3, rapid.IntRange(1, 100).Draw(rt, "health"), 5, 5)
		for range rapid.IntRange(1, 10).Draw(rt, "steps") {
			e := gameserver.Effect{
				Kind:   rapid.SampledFrom(kinds).Draw(rt, "kind"),
				Amount: rapid.IntRange(-50, 500).Draw(rt, "amount"),
			}
			if err := h.handler.ApplyEffect(ctx, "aria", e); err != nil && !errors.Is(err, combat.ErrTargetGone) {
				rt.Fatalf("apply %v: %v", e, err)
			}
			stats, err := h.store.LoadStats(ctx, "aria")
			if err != nil {
				rt.Fatal(err)
			}
			if stats.Resources != stats.Resources.Clamp() {
				rt.Fatalf("resources out of range: %+v", stats.Resources)
			}
		}
	})
}
