package npc

import (
	"sync"
	"time"
)

type respawnEntry struct {
	spawn   SpawnPoint
	readyAt time.Time
}

// RespawnManager schedules and executes NPC respawns.
// Schedule may be called from any goroutine; Tick and Populate are driven by
// the single tick loop.
type RespawnManager struct {
	mu        sync.Mutex
	spawns    []SpawnPoint
	templates map[string]*Template // templateID → Template
	pending   []respawnEntry
	now       func() time.Time
}

// NewRespawnManager creates a RespawnManager over spawns and templates.
//
// Postcondition: Returns a non-nil RespawnManager.
func NewRespawnManager(spawns []SpawnPoint, templates map[string]*Template) *RespawnManager {
	if templates == nil {
		templates = make(map[string]*Template)
	}
	return &RespawnManager{spawns: spawns, templates: templates, now: time.Now}
}

// Populate fills every spawn point up to its cap.
//
// Postcondition: returns the instances created.
func (r *RespawnManager) Populate(mgr *Manager) []*Instance {
	var out []*Instance
	for _, sp := range r.spawns {
		tmpl, ok := r.templates[sp.TemplateID]
		if !ok {
			continue
		}
		for i := mgr.CountFromSpawn(sp); i < sp.Max; i++ {
			inst, err := mgr.Spawn(tmpl, sp)
			if err != nil {
				continue
			}
			out = append(out, inst)
		}
	}
	return out
}

// ScheduleRespawn queues recreation of inst's template at its original spawn
// point. No-op when the resolved delay is zero.
func (r *RespawnManager) ScheduleRespawn(inst *Instance) {
	delay := r.ResolvedDelay(inst.Spawn)
	if delay <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, respawnEntry{spawn: inst.Spawn, readyAt: r.now().Add(delay)})
}

// Pending returns the number of queued respawns.
func (r *RespawnManager) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Tick drains entries whose readyAt <= now and spawns each one unless its
// spawn point is already at capacity.
//
// Postcondition: returns the instances created.
func (r *RespawnManager) Tick(now time.Time, mgr *Manager) []*Instance {
	r.mu.Lock()
	var ready, future []respawnEntry
	for _, e := range r.pending {
		if !e.readyAt.After(now) {
			ready = append(ready, e)
		} else {
			future = append(future, e)
		}
	}
	r.pending = future
	r.mu.Unlock()

	var out []*Instance
	for _, e := range ready {
		tmpl, ok := r.templates[e.spawn.TemplateID]
		if !ok {
			continue
		}
		if mgr.CountFromSpawn(e.spawn) >= max(e.spawn.Max, 1) {
			continue
		}
		inst, err := mgr.Spawn(tmpl, e.spawn)
		if err != nil {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// ResolvedDelay returns the spawn point's delay if set, otherwise the
// template's parsed delay. Returns 0 when neither is set.
func (r *RespawnManager) ResolvedDelay(sp SpawnPoint) time.Duration {
	if sp.RespawnDelay > 0 {
		return sp.RespawnDelay
	}
	tmpl, ok := r.templates[sp.TemplateID]
	if !ok || tmpl.RespawnDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(tmpl.RespawnDelay)
	if err != nil {
		return 0
	}
	return d
}
