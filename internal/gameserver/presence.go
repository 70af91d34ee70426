package gameserver

import (
	"context"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// Presence answers party eligibility questions from live sessions and stored
// health.
type Presence struct {
	locator Locator
	chars   CharacterStore
}

// NewPresence creates a Presence.
func NewPresence(locator Locator, chars CharacterStore) *Presence {
	return &Presence{locator: locator, chars: chars}
}

// Position returns the player's tile when connected.
func (p *Presence) Position(userID string) (combat.Position, bool) {
	return p.locator.Position(userID)
}

// Alive reports whether the player's stored health is above zero. Players
// whose stats cannot be loaded count as not alive.
func (p *Presence) Alive(ctx context.Context, userID string) bool {
	stats, err := p.chars.LoadStats(ctx, userID)
	if err != nil {
		return false
	}
	return stats.Alive()
}
