package leveling

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// Progress is a character's stored level and total experience.
type Progress struct {
	Level      int
	Experience int
}

// Store is the persistence the Engine needs.
type Store interface {
	// AddExperience atomically adds amount to the stored total and returns
	// the stored level together with the new total.
	AddExperience(ctx context.Context, userID string, amount int) (Progress, error)
	// SaveProgress persists level and remaining experience.
	SaveProgress(ctx context.Context, userID string, level, expToNext int) error
	// LoadVitals returns base attributes and resource pools.
	// Returns character.ErrNoAttributes when no attribute data exists.
	LoadVitals(ctx context.Context, userID string) (character.Attributes, character.Resources, error)
	// SaveResources persists all six resource values.
	SaveResources(ctx context.Context, userID string, res character.Resources) error
}

// Notifier delivers feedback to a player.
type Notifier interface {
	Notify(userID string, n session.Notice)
}

// Result describes one CreditExperience call.
type Result struct {
	Total     int
	OldLevel  int
	NewLevel  int
	ExpToNext int
	// Resources is set only when a level-up rescaled the pools.
	Resources *character.Resources
}

// LeveledUp reports whether the credit raised the level.
func (r Result) LeveledUp() bool { return r.NewLevel > r.OldLevel }

// Engine credits experience and applies level-ups.
type Engine struct {
	rules  Rules
	curve  Curve
	store  Store
	notify Notifier
	locks  *character.Locks
	logger *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: curve, store, notify, locks, and logger must be non-nil.
func NewEngine(rules Rules, curve Curve, store Store, notify Notifier, locks *character.Locks, logger *zap.Logger) *Engine {
	return &Engine{rules: rules, curve: curve, store: store, notify: notify, locks: locks, logger: logger}
}

// Curve returns the level curve in use.
func (e *Engine) Curve() Curve { return e.curve }

// CreditExperience adds amount to userID's experience and applies any level-up.
//
// Precondition: amount >= 0.
// Postcondition: the new total is persisted before the level is evaluated.
// A missing attribute record skips resource rescaling but still persists
// the new level.
func (e *Engine) CreditExperience(ctx context.Context, userID string, amount int) (Result, error) {
	if amount < 0 {
		return Result{}, fmt.Errorf("crediting %s: negative amount %d", userID, amount)
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	p, err := e.store.AddExperience(ctx, userID, amount)
	if err != nil {
		return Result{}, fmt.Errorf("crediting %s: %w", userID, err)
	}
	oldLevel := max(p.Level, 1)
	res := Result{
		Total:     p.Experience,
		OldLevel:  oldLevel,
		NewLevel:  max(e.curve.LevelFor(p.Experience), oldLevel),
		ExpToNext: e.curve.RemainingToNext(p.Experience),
	}

	if !res.LeveledUp() {
		if err := e.store.SaveProgress(ctx, userID, res.NewLevel, res.ExpToNext); err != nil {
			return res, fmt.Errorf("saving progress for %s: %w", userID, err)
		}
		e.notify.Notify(userID, session.Message("You gain %d experience (%d total).", amount, res.Total))
		e.notify.Notify(userID, session.Notice{Kind: session.KindStats, Fields: map[string]any{
			"experience":  res.Total,
			"exp_to_next": res.ExpToNext,
		}})
		return res, nil
	}

	attrs, cur, err := e.store.LoadVitals(ctx, userID)
	switch {
	case err == nil:
		next := e.rescale(res.NewLevel, attrs, cur)
		if err := e.store.SaveResources(ctx, userID, next); err != nil {
			return res, fmt.Errorf("saving resources for %s: %w", userID, err)
		}
		res.Resources = &next
	case errors.Is(err, character.ErrNoAttributes):
		e.logger.Warn("level-up without attributes, skipping rescale",
			zap.String("user", userID), zap.Int("level", res.NewLevel))
	default:
		e.logger.Warn("loading vitals for level-up failed, skipping rescale",
			zap.String("user", userID), zap.Error(err))
	}

	if err := e.store.SaveProgress(ctx, userID, res.NewLevel, res.ExpToNext); err != nil {
		return res, fmt.Errorf("saving progress for %s: %w", userID, err)
	}

	e.logger.Info("level up",
		zap.String("user", userID),
		zap.Int("from", res.OldLevel),
		zap.Int("to", res.NewLevel),
		zap.Int("experience", res.Total))

	fields := map[string]any{
		"level":       res.NewLevel,
		"experience":  res.Total,
		"exp_to_next": res.ExpToNext,
		"cue":         "level_up",
	}
	if res.Resources != nil {
		fields["health"] = res.Resources.Health
		fields["max_health"] = res.Resources.MaxHealth
		fields["mana"] = res.Resources.Mana
		fields["max_mana"] = res.Resources.MaxMana
		fields["stamina"] = res.Resources.Stamina
		fields["max_stamina"] = res.Resources.MaxStamina
	}
	e.notify.Notify(userID, session.Message("Congratulations! You have reached level %d!", res.NewLevel))
	e.notify.Notify(userID, session.Notice{Kind: session.KindLevelUp, Fields: fields})
	return res, nil
}

func (e *Engine) rescale(level int, attrs character.Attributes, cur character.Resources) character.Resources {
	maxHealth, maxMana, maxStamina := e.rules.Maxima(level, attrs.Constitution, attrs.Intelligence)
	return character.Resources{
		Health:     Rescale(cur.Health, cur.MaxHealth, maxHealth),
		MaxHealth:  maxHealth,
		Mana:       Rescale(cur.Mana, cur.MaxMana, maxMana),
		MaxMana:    maxMana,
		Stamina:    Rescale(cur.Stamina, cur.MaxStamina, maxStamina),
		MaxStamina: maxStamina,
	}
}
