package scripting_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestBudget_StopsRunawayLoop(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	release := scripting.Budget(context.Background(), L, 10)
	defer release()
	assert.Error(t, L.DoString(`while true do end`))
}

func TestProperty_BudgetAlwaysStopsLoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState()
		defer L.Close()
		release := scripting.Budget(context.Background(), L, limit)
		defer release()
		if err := L.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}

func TestLoadCurve_MatchesDefaultTable(t *testing.T) {
	c, err := scripting.LoadCurve(filepath.Join("testdata", "curve.lua"), 0, leveling.DefaultCurve(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	table := leveling.DefaultCurve()
	for _, exp := range []int{0, 99, 100, 299, 300, 12345} {
		assert.Equal(t, table.LevelFor(exp), c.LevelFor(exp), "level at %d", exp)
		assert.Equal(t, table.RemainingToNext(exp), c.RemainingToNext(exp), "remaining at %d", exp)
	}
}

func TestLoadCurve_MissingHook(t *testing.T) {
	_, err := scripting.LoadCurve(filepath.Join("testdata", "incomplete.lua"), 0, leveling.DefaultCurve(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), scripting.HookExpToNext)
}

func TestLoadCurve_MissingFile(t *testing.T) {
	_, err := scripting.LoadCurve(filepath.Join("testdata", "nope.lua"), 0, leveling.DefaultCurve(), zap.NewNop())
	assert.Error(t, err)
}

func TestCurve_RunawayFallsBack(t *testing.T) {
	c, err := scripting.LoadCurve(filepath.Join("testdata", "runaway.lua"), 1000, leveling.DefaultCurve(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, leveling.DefaultCurve().LevelFor(5000), c.LevelFor(5000))
}

func TestCurve_NonNumericFallsBack(t *testing.T) {
	c, err := scripting.LoadCurve(filepath.Join("testdata", "runaway.lua"), 1000, leveling.DefaultCurve(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 100, c.RemainingToNext(0))
}
