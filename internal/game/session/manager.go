package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// PlayerSession tracks a connected player's state.
type PlayerSession struct {
	// UID is the unique player identifier.
	UID string
	// Name is the character display name.
	Name string
	// Position is the player's current tile.
	Position combat.Position
	// LastSeen is updated on every movement.
	LastSeen time.Time
	// Entity is the bridge entity for pushing notices to the player.
	Entity *BridgeEntity
}

// Manager tracks all active player sessions and map occupancy.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	players map[string]*PlayerSession  // uid → session
	mapSets map[int]map[string]bool    // mapID → set of UIDs
	logger  *zap.Logger
	now     func() time.Time
}

// NewManager creates an empty session Manager.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		players: make(map[string]*PlayerSession),
		mapSets: make(map[int]map[string]bool),
		logger:  logger,
		now:     time.Now,
	}
}

// AddPlayer registers a new player session at pos.
//
// Precondition: uid and name must be non-empty.
// Postcondition: Returns the created PlayerSession, or an error if the UID is already registered.
func (m *Manager) AddPlayer(uid, name string, pos combat.Position) (*PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[uid]; exists {
		return nil, fmt.Errorf("player %q already connected", uid)
	}

	sess := &PlayerSession{
		UID:      uid,
		Name:     name,
		Position: pos,
		LastSeen: m.now(),
		Entity:   NewBridgeEntity(uid, 64),
	}
	m.players[uid] = sess
	m.occupy(pos.MapID, uid)
	return sess, nil
}

// RemovePlayer removes a player session and cleans up map occupancy.
//
// Postcondition: The player is removed from all tracking. Returns an error if not found.
func (m *Manager) RemovePlayer(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return fmt.Errorf("player %q not found", uid)
	}
	m.vacate(sess.Position.MapID, uid)
	_ = sess.Entity.Close()
	delete(m.players, uid)
	return nil
}

// MovePlayer moves a player to pos.
//
// Postcondition: Returns the previous position, or an error if the player is not found.
func (m *Manager) MovePlayer(uid string, pos combat.Position) (combat.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return combat.Position{}, fmt.Errorf("player %q not found", uid)
	}
	old := sess.Position
	if old.MapID != pos.MapID {
		m.vacate(old.MapID, uid)
		m.occupy(pos.MapID, uid)
	}
	sess.Position = pos
	sess.LastSeen = m.now()
	return old, nil
}

func (m *Manager) occupy(mapID int, uid string) {
	if m.mapSets[mapID] == nil {
		m.mapSets[mapID] = make(map[string]bool)
	}
	m.mapSets[mapID][uid] = true
}

func (m *Manager) vacate(mapID int, uid string) {
	if set, ok := m.mapSets[mapID]; ok {
		delete(set, uid)
		if len(set) == 0 {
			delete(m.mapSets, mapID)
		}
	}
}

// Position returns the player's current tile.
//
// Postcondition: ok is false when the player is not connected.
func (m *Manager) Position(uid string) (combat.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	if !ok {
		return combat.Position{}, false
	}
	return sess.Position, true
}

// Online reports whether uid has an active session.
func (m *Manager) Online(uid string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.players[uid]
	return ok
}

// PlayersOnMap returns the UIDs of all players on mapID.
func (m *Manager) PlayersOnMap(mapID int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.mapSets[mapID]
	out := make([]string, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	return out
}

// GetPlayer returns the session for the given UID.
func (m *Manager) GetPlayer(uid string) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	return sess, ok
}

// PlayerCount returns the total number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// Notify pushes n to uid. Delivery is best-effort; offline players and
// full buffers are logged and dropped.
func (m *Manager) Notify(uid string, n Notice) {
	m.mu.RLock()
	sess, ok := m.players[uid]
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.push(sess, n)
}

// Broadcast pushes n to every player on mapID.
func (m *Manager) Broadcast(mapID int, n Notice) {
	m.mu.RLock()
	targets := make([]*PlayerSession, 0, len(m.mapSets[mapID]))
	for uid := range m.mapSets[mapID] {
		targets = append(targets, m.players[uid])
	}
	m.mu.RUnlock()
	for _, sess := range targets {
		m.push(sess, n)
	}
}

func (m *Manager) push(sess *PlayerSession, n Notice) {
	frame, err := n.Frame()
	if err != nil {
		m.logger.Warn("dropping unencodable notice", zap.String("uid", sess.UID), zap.Error(err))
		return
	}
	if err := sess.Entity.Push(frame); err != nil {
		m.logger.Debug("notice not delivered", zap.String("uid", sess.UID), zap.String("kind", string(n.Kind)), zap.Error(err))
	}
}

// PlayerUIDs returns the UIDs of every connected player.
func (m *Manager) PlayerUIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.players))
	for uid := range m.players {
		out = append(out, uid)
	}
	return out
}
