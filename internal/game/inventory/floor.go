package inventory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/realm/internal/game/world"
)

// GroundItem is an item or gold pile lying on a map tile.
type GroundItem struct {
	ID        string
	ItemID    string
	Name      string
	Graphic   int
	Quantity  int
	MapID     int
	X         int
	Y         int
	DroppedAt time.Time
	// ExpiresAt is zero for items that never expire.
	ExpiresAt time.Time
}

// Blocker answers collision queries.
type Blocker interface {
	Blocked(mapID, x, y int) bool
}

type tile [2]int

// mapFloor owns the ground items of one map. All access holds mu.
type mapFloor struct {
	mu    sync.Mutex
	tiles map[tile][]GroundItem
	index map[string]tile // ground item ID → tile
}

// FloorManager tracks ground items per map. Each map has its own lock so a
// placement on one map never waits on another.
type FloorManager struct {
	mu      sync.RWMutex
	maps    map[int]*mapFloor
	blocker Blocker
	offsets []world.Offset
	ttl     time.Duration
	now     func() time.Time
}

// NewFloorManager creates an empty FloorManager.
//
// Precondition: blocker must be non-nil; budget >= 1.
// Postcondition: free-tile searches test at most budget tiles; ttl == 0
// means ground items never expire.
func NewFloorManager(blocker Blocker, budget int, ttl time.Duration) *FloorManager {
	return &FloorManager{
		maps:    make(map[int]*mapFloor),
		blocker: blocker,
		offsets: world.RingOffsets(max(budget, 1)),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (fm *FloorManager) floor(mapID int) *mapFloor {
	fm.mu.RLock()
	f, ok := fm.maps[mapID]
	fm.mu.RUnlock()
	if ok {
		return f
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if f, ok = fm.maps[mapID]; !ok {
		f = &mapFloor{tiles: make(map[tile][]GroundItem), index: make(map[string]tile)}
		fm.maps[mapID] = f
	}
	return f
}

// DropNear places item on the first free tile around (x, y) on mapID. A tile
// is free when it is not blocked and holds no ground item. The search and the
// placement happen under the map's lock.
//
// Postcondition: on success the returned item carries its new ID, tile, and
// expiry; ok is false when the search budget is exhausted.
func (fm *FloorManager) DropNear(mapID, x, y int, item GroundItem) (GroundItem, bool) {
	f := fm.floor(mapID)
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range fm.offsets {
		t := tile{x + o.DX, y + o.DY}
		if len(f.tiles[t]) > 0 || fm.blocker.Blocked(mapID, t[0], t[1]) {
			continue
		}
		now := fm.now()
		item.ID = uuid.NewString()
		item.MapID, item.X, item.Y = mapID, t[0], t[1]
		item.DroppedAt = now
		if fm.ttl > 0 {
			item.ExpiresAt = now.Add(fm.ttl)
		}
		f.tiles[t] = append(f.tiles[t], item)
		f.index[item.ID] = t
		return item, true
	}
	return GroundItem{}, false
}

// Pickup removes and returns the ground item with the given ID.
//
// Postcondition: on failure, map state is unchanged.
func (fm *FloorManager) Pickup(mapID int, groundID string) (GroundItem, bool) {
	f := fm.floor(mapID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(groundID)
}

func (f *mapFloor) removeLocked(groundID string) (GroundItem, bool) {
	t, ok := f.index[groundID]
	if !ok {
		return GroundItem{}, false
	}
	items := f.tiles[t]
	for i, it := range items {
		if it.ID == groundID {
			rest := append(items[:i:i], items[i+1:]...)
			if len(rest) == 0 {
				delete(f.tiles, t)
			} else {
				f.tiles[t] = rest
			}
			delete(f.index, groundID)
			return it, true
		}
	}
	return GroundItem{}, false
}

// ItemsAt returns a copy of the items on one tile.
func (fm *FloorManager) ItemsAt(mapID, x, y int) []GroundItem {
	f := fm.floor(mapID)
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.tiles[tile{x, y}]
	out := make([]GroundItem, len(items))
	copy(out, items)
	return out
}

// ItemsOnMap returns a copy of every item on mapID.
func (fm *FloorManager) ItemsOnMap(mapID int) []GroundItem {
	f := fm.floor(mapID)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []GroundItem
	for _, items := range f.tiles {
		out = append(out, items...)
	}
	return out
}

// Expire removes every item whose ExpiresAt is at or before now.
//
// Postcondition: returns the removed items.
func (fm *FloorManager) Expire(now time.Time) []GroundItem {
	fm.mu.RLock()
	floors := make([]*mapFloor, 0, len(fm.maps))
	for _, f := range fm.maps {
		floors = append(floors, f)
	}
	fm.mu.RUnlock()

	var out []GroundItem
	for _, f := range floors {
		f.mu.Lock()
		var expired []string
		for _, items := range f.tiles {
			for _, it := range items {
				if !it.ExpiresAt.IsZero() && !it.ExpiresAt.After(now) {
					expired = append(expired, it.ID)
				}
			}
		}
		for _, id := range expired {
			if it, ok := f.removeLocked(id); ok {
				out = append(out, it)
			}
		}
		f.mu.Unlock()
	}
	return out
}
