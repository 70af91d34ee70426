package world

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLoadMapsFromDir(t *testing.T) {
	maps, err := LoadMapsFromDir("testdata")
	require.NoError(t, err)
	require.Len(t, maps, 1)
	m := maps[0]
	assert.Equal(t, 4, m.ID)
	assert.True(t, m.Blocked(98, 198))
	assert.False(t, m.Blocked(100, 200))
	assert.True(t, m.Blocked(-1, 0))
	assert.True(t, m.Blocked(300, 0))
}

func TestLoadMapFromBytes_Invalid(t *testing.T) {
	_, err := LoadMapFromBytes([]byte("id: 1\nname: x\nwidth: 0\nheight: 5\n"))
	assert.Error(t, err)
	_, err = LoadMapFromBytes([]byte(":::"))
	assert.Error(t, err)
	_, err = LoadMapFromFile(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestManager(t *testing.T) {
	m, err := NewManager([]*Map{NewMap(1, "a", 10, 10)})
	require.NoError(t, err)
	assert.False(t, m.Blocked(1, 5, 5))
	assert.True(t, m.Blocked(2, 5, 5), "unknown map is blocked")
	assert.Equal(t, 1, m.MapCount())

	_, err = NewManager([]*Map{NewMap(1, "a", 1, 1), NewMap(1, "b", 1, 1)})
	assert.Error(t, err)
}

func TestRingOffsets_Order(t *testing.T) {
	offs := RingOffsets(10)
	require.Len(t, offs, 10)
	assert.Equal(t, Offset{}, offs[0])
	for _, o := range offs[1:9] {
		assert.Equal(t, 1, max(abs(o.DX), abs(o.DY)))
	}
	assert.Equal(t, 2, max(abs(offs[9].DX), abs(offs[9].DY)))
	assert.Nil(t, RingOffsets(0))
}

func TestProperty_RingOffsetsDistinctAndOrdered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		budget := rapid.IntRange(1, 200).Draw(rt, "budget")
		offs := RingOffsets(budget)
		assert.Len(rt, offs, budget)
		seen := map[Offset]bool{}
		prev := 0
		for _, o := range offs {
			assert.False(rt, seen[o])
			seen[o] = true
			ring := max(abs(o.DX), abs(o.DY))
			assert.GreaterOrEqual(rt, ring, prev)
			prev = ring
		}
	})
}
