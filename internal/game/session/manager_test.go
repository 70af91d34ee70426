package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

func TestBridgeEntity_Push(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Push([]byte("hello")))

	data := <-e.Events()
	assert.Equal(t, []byte("hello"), data)
}

func TestBridgeEntity_PushClosed(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
	assert.Error(t, e.Push([]byte("fail")))
}

func TestBridgeEntity_PushFull(t *testing.T) {
	e := NewBridgeEntity("test", 1)
	require.NoError(t, e.Push([]byte("first")))
	err := e.Push([]byte("overflow"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestBridgeEntity_CloseIdempotent(t *testing.T) {
	e := NewBridgeEntity("test", 4)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
}

func TestManager_AddRemove(t *testing.T) {
	m := NewManager(zap.NewNop())
	sess, err := m.AddPlayer("u1", "Alice", combat.Position{MapID: 4, X: 10, Y: 12})
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Name)
	assert.True(t, m.Online("u1"))
	assert.Equal(t, []string{"u1"}, m.PlayersOnMap(4))

	_, err = m.AddPlayer("u1", "Alice", combat.Position{})
	assert.Error(t, err)

	require.NoError(t, m.RemovePlayer("u1"))
	assert.False(t, m.Online("u1"))
	assert.Empty(t, m.PlayersOnMap(4))
	assert.Error(t, m.RemovePlayer("u1"))
}

func TestManager_MovePlayer(t *testing.T) {
	m := NewManager(zap.NewNop())
	_, err := m.AddPlayer("u1", "Alice", combat.Position{MapID: 1, X: 1, Y: 1})
	require.NoError(t, err)

	old, err := m.MovePlayer("u1", combat.Position{MapID: 2, X: 5, Y: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, old.MapID)
	assert.Empty(t, m.PlayersOnMap(1))
	assert.Equal(t, []string{"u1"}, m.PlayersOnMap(2))

	pos, ok := m.Position("u1")
	require.True(t, ok)
	assert.Equal(t, combat.Position{MapID: 2, X: 5, Y: 5}, pos)

	_, err = m.MovePlayer("ghost", combat.Position{})
	assert.Error(t, err)
}

func TestManager_NotifyDeliversFrame(t *testing.T) {
	m := NewManager(zap.NewNop())
	sess, err := m.AddPlayer("u1", "Alice", combat.Position{MapID: 1})
	require.NoError(t, err)

	m.Notify("u1", Message("You gain %d experience.", 12345))
	frame := <-sess.Entity.Events()
	n, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, n.Kind)
	assert.Equal(t, "You gain 12,345 experience.", n.Text)

	// Unknown player is ignored.
	m.Notify("ghost", Message("nobody"))
}

func TestManager_BroadcastReachesOnlyMap(t *testing.T) {
	m := NewManager(zap.NewNop())
	a, err := m.AddPlayer("a", "A", combat.Position{MapID: 1})
	require.NoError(t, err)
	b, err := m.AddPlayer("b", "B", combat.Position{MapID: 2})
	require.NoError(t, err)

	m.Broadcast(1, Notice{Kind: KindRemove, Fields: map[string]any{"object_id": "npc-1"}})

	frame := <-a.Entity.Events()
	n, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, KindRemove, n.Kind)
	assert.Equal(t, "npc-1", n.Fields["object_id"])
	assert.Len(t, b.Entity.Events(), 0)
}

func TestNotice_FrameNumbersDecodeAsFloat(t *testing.T) {
	frame, err := Notice{Kind: KindStats, Fields: map[string]any{"health": 42}}.Frame()
	require.NoError(t, err)
	n, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, float64(42), n.Fields["health"])
}

func TestNotice_FrameRejectsUnencodable(t *testing.T) {
	_, err := Notice{Kind: KindStats, Fields: map[string]any{"bad": struct{}{}}}.Frame()
	assert.Error(t, err)
}

func TestManager_ConcurrentAddRemove(t *testing.T) {
	m := NewManager(zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i)
			_, err := m.AddPlayer(uid, uid, combat.Position{MapID: i % 3})
			assert.NoError(t, err)
			m.Broadcast(i%3, Message("hello"))
			assert.NoError(t, m.RemovePlayer(uid))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, m.PlayerCount())
}

func TestProperty_OccupancyMatchesPositions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := NewManager(zap.NewNop())
		n := rapid.IntRange(1, 10).Draw(rt, "players")
		for i := 0; i < n; i++ {
			uid := fmt.Sprintf("p%d", i)
			_, err := m.AddPlayer(uid, uid, combat.Position{MapID: rapid.IntRange(0, 3).Draw(rt, "map")})
			require.NoError(rt, err)
		}
		moves := rapid.IntRange(0, 20).Draw(rt, "moves")
		for i := 0; i < moves; i++ {
			uid := fmt.Sprintf("p%d", rapid.IntRange(0, n-1).Draw(rt, "who"))
			_, err := m.MovePlayer(uid, combat.Position{MapID: rapid.IntRange(0, 3).Draw(rt, "dest")})
			require.NoError(rt, err)
		}
		total := 0
		for mapID := 0; mapID <= 3; mapID++ {
			for _, uid := range m.PlayersOnMap(mapID) {
				pos, ok := m.Position(uid)
				require.True(rt, ok)
				assert.Equal(rt, mapID, pos.MapID)
				total++
			}
		}
		assert.Equal(rt, n, total)
	})
}
