package leveling

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/session"
)

type fakeStore struct {
	mu        sync.Mutex
	level     int
	exp       int
	expToNext int
	attrs     *character.Attributes
	res       character.Resources
	saves     int
}

func (f *fakeStore) AddExperience(_ context.Context, _ string, amount int) (Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exp += amount
	return Progress{Level: f.level, Experience: f.exp}, nil
}

func (f *fakeStore) SaveProgress(_ context.Context, _ string, level, expToNext int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
	f.expToNext = expToNext
	return nil
}

func (f *fakeStore) LoadVitals(_ context.Context, _ string) (character.Attributes, character.Resources, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attrs == nil {
		return character.Attributes{}, character.Resources{}, character.ErrNoAttributes
	}
	return *f.attrs, f.res, nil
}

func (f *fakeStore) SaveResources(_ context.Context, _ string, res character.Resources) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.res = res
	f.saves++
	return nil
}

type recorder struct {
	mu      sync.Mutex
	notices []session.Notice
}

func (r *recorder) Notify(_ string, n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) kinds() []session.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Kind, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func newEngine(store Store, rec *recorder) *Engine {
	curve := &TableCurve{Thresholds: []int{0, 100, 300, 600, 1000}}
	return NewEngine(DefaultRules(), curve, store, rec, character.NewLocks(), zap.NewNop())
}

func TestRescale_PreservesRatio(t *testing.T) {
	assert.Equal(t, 150, Rescale(50, 100, 300))
	assert.Equal(t, 0, Rescale(0, 100, 300))
	assert.Equal(t, 300, Rescale(100, 100, 300))
}

func TestRescale_ZeroOldMaxFillsPool(t *testing.T) {
	assert.Equal(t, 300, Rescale(0, 0, 300))
}

func TestRescale_PositiveRatioNeverBelowOne(t *testing.T) {
	assert.Equal(t, 1, Rescale(1, 1000, 100))
}

func TestProperty_RescaleBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		oldMax := rapid.IntRange(1, 100_000).Draw(rt, "oldMax")
		oldCur := rapid.IntRange(0, oldMax).Draw(rt, "oldCur")
		newMax := rapid.IntRange(1, 100_000).Draw(rt, "newMax")
		got := Rescale(oldCur, oldMax, newMax)
		assert.GreaterOrEqual(rt, got, 0)
		assert.LessOrEqual(rt, got, newMax)
		if oldCur > 0 {
			assert.GreaterOrEqual(rt, got, 1)
		}
		if oldCur == oldMax {
			assert.Equal(rt, newMax, got)
		}
	})
}

func TestTableCurve_LevelFor(t *testing.T) {
	c := &TableCurve{Thresholds: []int{0, 100, 300}}
	assert.Equal(t, 1, c.LevelFor(0))
	assert.Equal(t, 1, c.LevelFor(99))
	assert.Equal(t, 2, c.LevelFor(100))
	assert.Equal(t, 3, c.LevelFor(5000))
	assert.Equal(t, 100, c.RemainingToNext(200))
	assert.Equal(t, 0, c.RemainingToNext(5000))
}

func TestDefaultCurve_Valid(t *testing.T) {
	c := DefaultCurve()
	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.LevelFor(100))
	assert.Equal(t, 3, c.LevelFor(300))
	assert.Equal(t, 99, c.LevelFor(1<<30))
}

func TestProperty_CurveMonotonic(t *testing.T) {
	c := DefaultCurve()
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 1_000_000).Draw(rt, "a")
		b := rapid.IntRange(a, 1_000_000).Draw(rt, "b")
		assert.LessOrEqual(rt, c.LevelFor(a), c.LevelFor(b))
	})
}

func TestLoadTableCurve(t *testing.T) {
	c, err := LoadTableCurve(filepath.Join("testdata", "exp_table.toml"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 100, 300, 600, 1000}, c.Thresholds)

	_, err = LoadTableCurve(filepath.Join("testdata", "bad_table.toml"))
	assert.Error(t, err)

	_, err = LoadTableCurve(filepath.Join("testdata", "missing.toml"))
	assert.Error(t, err)
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
	r := DefaultRules()
	r.MinMaxHealth = 0
	r.HPPerConstitution = -1
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_max_health")
	assert.Contains(t, err.Error(), "hp_per_constitution")
}

func TestCreditExperience_SameLevel(t *testing.T) {
	store := &fakeStore{level: 1, exp: 10, attrs: &character.Attributes{Constitution: 10}}
	rec := &recorder{}
	res, err := newEngine(store, rec).CreditExperience(context.Background(), "u1", 20)
	require.NoError(t, err)

	assert.False(t, res.LeveledUp())
	assert.Equal(t, 30, store.exp)
	assert.Equal(t, 70, store.expToNext)
	assert.Equal(t, 0, store.saves, "same-level credit must not touch resources")
	assert.Equal(t, []session.Kind{session.KindMessage, session.KindStats}, rec.kinds())
}

func TestCreditExperience_LevelUpRescalesRatio(t *testing.T) {
	// Constitution 20 × 5 × level 3 = 300 max health.
	store := &fakeStore{
		level: 1,
		exp:   50,
		attrs: &character.Attributes{Constitution: 20, Intelligence: 1},
		res: character.Resources{
			Health: 50, MaxHealth: 100,
			Mana: 100, MaxMana: 100,
			Stamina: 55, MaxStamina: 110,
		},
	}
	rec := &recorder{}
	res, err := newEngine(store, rec).CreditExperience(context.Background(), "u1", 250)
	require.NoError(t, err)

	require.True(t, res.LeveledUp())
	assert.Equal(t, 3, res.NewLevel)
	assert.Equal(t, 3, store.level)
	assert.Equal(t, 300, store.expToNext)
	assert.Equal(t, 300, store.res.MaxHealth)
	assert.Equal(t, 150, store.res.Health)
	assert.Equal(t, 100, store.res.MaxMana, "mana max floors at 100")
	assert.Equal(t, 100, store.res.Mana)
	assert.Equal(t, 130, store.res.MaxStamina)
	assert.Equal(t, 65, store.res.Stamina)
	assert.Contains(t, rec.kinds(), session.KindLevelUp)
}

func TestCreditExperience_LevelUpWithoutAttributes(t *testing.T) {
	store := &fakeStore{level: 1}
	rec := &recorder{}
	res, err := newEngine(store, rec).CreditExperience(context.Background(), "u1", 100)
	require.NoError(t, err)

	assert.Equal(t, 2, res.NewLevel)
	assert.Nil(t, res.Resources)
	assert.Equal(t, 2, store.level)
	assert.Equal(t, 0, store.saves)
}

func TestCreditExperience_RejectsNegative(t *testing.T) {
	_, err := newEngine(&fakeStore{level: 1}, &recorder{}).CreditExperience(context.Background(), "u1", -5)
	assert.Error(t, err)
}

type failingStore struct{ fakeStore }

func (f *failingStore) AddExperience(context.Context, string, int) (Progress, error) {
	return Progress{}, errors.New("db down")
}

func TestCreditExperience_StoreFailure(t *testing.T) {
	_, err := newEngine(&failingStore{}, &recorder{}).CreditExperience(context.Background(), "u1", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestCreditExperience_ConcurrentCreditsSum(t *testing.T) {
	store := &fakeStore{level: 1}
	e := newEngine(store, &recorder{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CreditExperience(context.Background(), "u1", 7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 140, store.exp)
	assert.Equal(t, 2, store.level)
}
