// Package memory provides an in-process implementation of every store the
// combat engine needs. It backs standalone mode and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/party"
)

type npcHealth struct {
	current, max int
}

// Store keeps characters, NPC health and parties in maps guarded by one
// RWMutex. All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	chars   map[string]*character.Stats
	npcs    map[string]npcHealth
	parties map[string]party.Snapshot
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		chars:   make(map[string]*character.Stats),
		npcs:    make(map[string]npcHealth),
		parties: make(map[string]party.Snapshot),
	}
}

// PutCharacter inserts or replaces a character.
//
// Precondition: stats.ID must be non-empty.
func (s *Store) PutCharacter(stats character.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats.Level = max(stats.Level, 1)
	stats.Resources = stats.Resources.Clamp()
	stats.Modifiers.Boosts = slices.Clone(stats.Modifiers.Boosts)
	s.chars[stats.ID] = &stats
}

// LoadStats returns a copy of the character, or character.ErrNotFound.
func (s *Store) LoadStats(_ context.Context, userID string) (*character.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chars[userID]
	if !ok {
		return nil, fmt.Errorf("loading %s: %w", userID, character.ErrNotFound)
	}
	out := *c
	out.Modifiers.Boosts = slices.Clone(c.Modifiers.Boosts)
	return &out, nil
}

// SaveResources replaces the character's six resource values.
func (s *Store) SaveResources(_ context.Context, userID string, res character.Resources) error {
	return s.update(userID, func(c *character.Stats) { c.Resources = res.Clamp() })
}

// SaveModifiers replaces the character's transient modifiers.
func (s *Store) SaveModifiers(_ context.Context, userID string, mods character.Modifiers) error {
	mods.Boosts = slices.Clone(mods.Boosts)
	return s.update(userID, func(c *character.Stats) { c.Modifiers = mods })
}

// AddExperience adds amount to the stored total in one step.
func (s *Store) AddExperience(_ context.Context, userID string, amount int) (leveling.Progress, error) {
	var p leveling.Progress
	err := s.update(userID, func(c *character.Stats) {
		c.Experience += amount
		p = leveling.Progress{Level: c.Level, Experience: c.Experience}
	})
	return p, err
}

// SaveProgress persists level and remaining experience.
func (s *Store) SaveProgress(_ context.Context, userID string, level, expToNext int) error {
	return s.update(userID, func(c *character.Stats) {
		c.Level = max(level, 1)
		c.ExpToNext = expToNext
	})
}

// LoadVitals returns attributes and resources. A character whose attributes
// are all zero has no attribute data.
func (s *Store) LoadVitals(_ context.Context, userID string) (character.Attributes, character.Resources, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chars[userID]
	if !ok {
		return character.Attributes{}, character.Resources{}, fmt.Errorf("loading vitals of %s: %w", userID, character.ErrNotFound)
	}
	if c.Attributes == (character.Attributes{}) {
		return character.Attributes{}, c.Resources, fmt.Errorf("loading vitals of %s: %w", userID, character.ErrNoAttributes)
	}
	return c.Attributes, c.Resources, nil
}

func (s *Store) update(userID string, fn func(*character.Stats)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chars[userID]
	if !ok {
		return fmt.Errorf("updating %s: %w", userID, character.ErrNotFound)
	}
	fn(c)
	return nil
}

// SaveNpcHealth records an NPC instance's health.
func (s *Store) SaveNpcHealth(_ context.Context, instanceID string, health, maxHealth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.npcs[instanceID] = npcHealth{current: health, max: maxHealth}
	return nil
}

// DeleteNpc forgets an NPC instance.
func (s *Store) DeleteNpc(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.npcs, instanceID)
	return nil
}

// LoadNpcHealth returns the recorded health of an NPC instance.
//
// Postcondition: ok is false when nothing is recorded.
func (s *Store) LoadNpcHealth(_ context.Context, instanceID string) (current, maximum int, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.npcs[instanceID]
	return h.current, h.max, ok, nil
}

// SaveParty stores a party snapshot.
func (s *Store) SaveParty(_ context.Context, snap party.Snapshot) error {
	snap.Members = slices.Clone(snap.Members)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[snap.ID] = snap
	return nil
}

// DeleteParty removes a party snapshot.
func (s *Store) DeleteParty(_ context.Context, partyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parties, partyID)
	return nil
}

// Party returns the stored snapshot of partyID.
func (s *Store) Party(partyID string) (party.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.parties[partyID]
	return snap, ok
}
