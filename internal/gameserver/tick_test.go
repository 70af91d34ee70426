package gameserver_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/realm/internal/gameserver"
)

func TestTickManager_StartsAndStops(t *testing.T) {
	tm := gameserver.NewTickManager(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)
	time.Sleep(120 * time.Millisecond)
	cancel()
	// Should not block or panic after cancel
}

func TestTickManager_TickCallbackInvoked(t *testing.T) {
	tm := gameserver.NewTickManager(20 * time.Millisecond)
	called := make(chan struct{}, 1)
	tm.RegisterTick("respawn", func(context.Context, time.Time) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	tm.Start(ctx)
	select {
	case <-called:
	case <-ctx.Done():
		t.Fatal("tick callback not invoked within timeout")
	}
}

func TestTickManager_UnregisterStopsCallback(t *testing.T) {
	tm := gameserver.NewTickManager(20 * time.Millisecond)
	var count atomic.Int64
	tm.RegisterTick("t1", func(context.Context, time.Time) { count.Add(1) })
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	tm.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	tm.Unregister("t1")
	countAfterUnregister := count.Load()
	time.Sleep(60 * time.Millisecond)
	if count.Load() > countAfterUnregister+1 {
		t.Fatalf("tick continued after unregister: before=%d after=%d", countAfterUnregister, count.Load())
	}
}

func TestTickManager_RunOnceIsOrderedByName(t *testing.T) {
	tm := gameserver.NewTickManager(time.Second)
	var order []string
	for _, name := range []string{"respawn", "aggression", "modifiers", "ground"} {
		tm.RegisterTick(name, func(context.Context, time.Time) { order = append(order, name) })
	}
	now := time.Now()
	tm.RunOnce(context.Background(), now)
	assert.Equal(t, []string{"aggression", "ground", "modifiers", "respawn"}, order)
}

func TestNewTickManager_RejectsNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { gameserver.NewTickManager(0) })
}
