package world

import (
	"fmt"
	"sync"
)

// Manager provides thread-safe access to the loaded maps.
type Manager struct {
	mu   sync.RWMutex
	maps map[int]*Map
}

// NewManager indexes maps by ID.
//
// Postcondition: Returns an error on duplicate map IDs.
func NewManager(maps []*Map) (*Manager, error) {
	m := &Manager{maps: make(map[int]*Map, len(maps))}
	for _, mp := range maps {
		if _, exists := m.maps[mp.ID]; exists {
			return nil, fmt.Errorf("duplicate map ID: %d", mp.ID)
		}
		m.maps[mp.ID] = mp
	}
	return m, nil
}

// Map returns the map with the given ID.
func (m *Manager) Map(id int) (*Map, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mp, ok := m.maps[id]
	return mp, ok
}

// Blocked reports whether (x, y) on mapID is impassable. Unknown maps are
// entirely blocked.
func (m *Manager) Blocked(mapID, x, y int) bool {
	mp, ok := m.Map(mapID)
	if !ok {
		return true
	}
	return mp.Blocked(x, y)
}

// MapCount returns the number of loaded maps.
func (m *Manager) MapCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.maps)
}
