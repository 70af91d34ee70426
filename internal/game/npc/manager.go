package npc

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Manager tracks all live NPC instances by ID and by map.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance    // instanceID → Instance
	mapSets   map[int]map[string]bool // mapID → set of instanceIDs
	counter   atomic.Uint64
}

// NewManager creates an empty NPC Manager.
func NewManager() *Manager {
	return &Manager{
		instances: make(map[string]*Instance),
		mapSets:   make(map[int]map[string]bool),
	}
}

// Spawn creates a new Instance from tmpl at spawn.
//
// Precondition: tmpl must be non-nil.
// Postcondition: Returns a new Instance with a unique ID registered on spawn.MapID.
func (m *Manager) Spawn(tmpl *Template, spawn SpawnPoint) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("npc.Manager.Spawn: tmpl must not be nil")
	}

	n := m.counter.Add(1)
	id := fmt.Sprintf("%s-%d-%d", tmpl.ID, spawn.MapID, n)
	inst := NewInstance(id, tmpl, spawn)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[id] = inst
	if m.mapSets[spawn.MapID] == nil {
		m.mapSets[spawn.MapID] = make(map[string]bool)
	}
	m.mapSets[spawn.MapID][id] = true
	return inst, nil
}

// Remove forgets an instance.
//
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("npc instance %q not found", id)
	}
	mapID := inst.Position().MapID
	if set, ok := m.mapSets[mapID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.mapSets, mapID)
		}
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// InstancesOnMap returns a snapshot of all live instances on mapID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) InstancesOnMap(mapID int) []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.mapSets[mapID]
	out := make([]*Instance, 0, len(ids))
	for id := range ids {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// CountFromSpawn counts live instances created from spawn.
func (m *Manager) CountFromSpawn(spawn SpawnPoint) int {
	count := 0
	for _, inst := range m.InstancesOnMap(spawn.MapID) {
		if inst.Spawn.TemplateID == spawn.TemplateID && inst.Spawn.X == spawn.X && inst.Spawn.Y == spawn.Y {
			count++
		}
	}
	return count
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// All returns a snapshot of every live instance.
func (m *Manager) All() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}
