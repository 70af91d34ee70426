package gameserver

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// TickFunc is one periodic world task.
type TickFunc func(ctx context.Context, now time.Time)

// TickManager runs every registered task once per interval.
// Tasks run sequentially, in name order, on a single goroutine.
//
// Invariant: all callbacks are invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]TickFunc
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]TickFunc),
	}
}

// RegisterTick registers fn under name. Replaces any existing callback.
func (z *TickManager) RegisterTick(name string, fn TickFunc) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.ticks[name] = fn
}

// Unregister removes the callback registered under name.
func (z *TickManager) Unregister(name string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.ticks, name)
}

// RunOnce invokes every registered callback with now.
func (z *TickManager) RunOnce(ctx context.Context, now time.Time) {
	z.mu.Lock()
	callbacks := maps.Clone(z.ticks)
	z.mu.Unlock()
	for _, name := range slices.Sorted(maps.Keys(callbacks)) {
		callbacks[name](ctx, now)
	}
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered tick callbacks are invoked once per interval.
func (z *TickManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(z.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				z.RunOnce(ctx, now)
			}
		}
	}()
}
