package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/leveling"
)

// Hook names a script must define.
const (
	HookLevelFor  = "level_for_exp"
	HookExpToNext = "exp_to_next"
)

// Curve is a leveling.Curve evaluated by a Lua script.
//
// Calls are serialized on one VM. A script error or a non-numeric result is
// logged and answered by the fallback curve.
type Curve struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	fallback  leveling.Curve
	logger    *zap.Logger
}

// LoadCurve executes the script at path in a fresh sandbox and checks both hooks.
//
// Precondition: fallback and logger must be non-nil.
// Postcondition: returns a Curve whose hooks answer level_for_exp(0) >= 1,
// or an error.
func LoadCurve(path string, instLimit int, fallback leveling.Curve, logger *zap.Logger) (*Curve, error) {
	L := NewSandboxedState()
	release := Budget(context.Background(), L, instLimit)
	err := L.DoFile(path)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("loading level curve %q: %w", path, err)
	}
	c := &Curve{L: L, instLimit: instLimit, fallback: fallback, logger: logger}
	for _, hook := range []string{HookLevelFor, HookExpToNext} {
		if L.GetGlobal(hook).Type() != lua.LTFunction {
			L.Close()
			return nil, fmt.Errorf("level curve %q: missing function %s", path, hook)
		}
	}
	lvl, err := c.call(HookLevelFor, 0)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("level curve %q: %w", path, err)
	}
	if lvl < 1 {
		L.Close()
		return nil, fmt.Errorf("level curve %q: %s(0) = %d, want >= 1", path, HookLevelFor, lvl)
	}
	return c, nil
}

// LevelFor implements leveling.Curve.
func (c *Curve) LevelFor(totalExp int) int {
	v, err := c.call(HookLevelFor, totalExp)
	if err != nil {
		c.logger.Warn("lua level curve failed, using fallback", zap.String("hook", HookLevelFor), zap.Error(err))
		return c.fallback.LevelFor(totalExp)
	}
	return max(v, 1)
}

// RemainingToNext implements leveling.Curve.
func (c *Curve) RemainingToNext(totalExp int) int {
	v, err := c.call(HookExpToNext, totalExp)
	if err != nil {
		c.logger.Warn("lua level curve failed, using fallback", zap.String("hook", HookExpToNext), zap.Error(err))
		return c.fallback.RemainingToNext(totalExp)
	}
	return max(v, 0)
}

// Close releases the VM.
func (c *Curve) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.L.Close()
}

func (c *Curve) call(hook string, arg int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	release := Budget(context.Background(), c.L, c.instLimit)
	defer release()

	if err := c.L.CallByParam(lua.P{
		Fn:      c.L.GetGlobal(hook),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(arg)); err != nil {
		return 0, err
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, errors.New(hook + " returned " + ret.Type().String())
	}
	return int(n), nil
}
