package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/leveling"
)

// ErrCharacterExists is returned when creating a character whose ID is taken.
var ErrCharacterExists = errors.New("character already exists")

// CharacterRepository persists player combat state. Every write is a single
// statement; experience is incremented in the database, never read-modify-written.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create inserts a character. All-zero attributes are stored as NULL, which
// LoadVitals reports as character.ErrNoAttributes.
//
// Precondition: s.ID and s.Name must be non-empty.
// Postcondition: Returns ErrCharacterExists on a duplicate ID.
func (r *CharacterRepository) Create(ctx context.Context, s character.Stats) error {
	var attrs [5]*int
	if s.Attributes != (character.Attributes{}) {
		a := s.Attributes
		attrs = [5]*int{&a.Strength, &a.Agility, &a.Intelligence, &a.Charisma, &a.Constitution}
	}
	res := s.Resources.Clamp()
	_, err := r.db.Exec(ctx, `
		INSERT INTO characters
			(id, name, level, experience, exp_to_next, gold,
			 health, max_health, mana, max_mana, stamina, max_stamina,
			 strength, agility, intelligence, charisma, constitution, modifiers)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		s.ID, s.Name, max(s.Level, 1), s.Experience, s.ExpToNext, s.Gold,
		res.Health, res.MaxHealth, res.Mana, res.MaxMana, res.Stamina, res.MaxStamina,
		attrs[0], attrs[1], attrs[2], attrs[3], attrs[4], s.Modifiers,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrCharacterExists
		}
		return fmt.Errorf("inserting character: %w", err)
	}
	return nil
}

// LoadStats returns the full combat state of userID.
//
// Postcondition: Returns character.ErrNotFound when no row exists. Missing
// attributes load as zero.
func (r *CharacterRepository) LoadStats(ctx context.Context, userID string) (*character.Stats, error) {
	var (
		s     character.Stats
		attrs [5]*int
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, level, experience, exp_to_next, gold,
		       health, max_health, mana, max_mana, stamina, max_stamina,
		       strength, agility, intelligence, charisma, constitution, modifiers
		FROM characters WHERE id = $1`,
		userID,
	).Scan(
		&s.ID, &s.Name, &s.Level, &s.Experience, &s.ExpToNext, &s.Gold,
		&s.Resources.Health, &s.Resources.MaxHealth,
		&s.Resources.Mana, &s.Resources.MaxMana,
		&s.Resources.Stamina, &s.Resources.MaxStamina,
		&attrs[0], &attrs[1], &attrs[2], &attrs[3], &attrs[4], &s.Modifiers,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("loading %s: %w", userID, character.ErrNotFound)
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	if a, ok := attributesFrom(attrs); ok {
		s.Attributes = a
	}
	return &s, nil
}

// SaveResources persists all six resource values.
//
// Postcondition: Returns character.ErrNotFound if no row was updated.
func (r *CharacterRepository) SaveResources(ctx context.Context, userID string, res character.Resources) error {
	res = res.Clamp()
	tag, err := r.db.Exec(ctx, `
		UPDATE characters
		SET health = $2, max_health = $3, mana = $4, max_mana = $5,
		    stamina = $6, max_stamina = $7, updated_at = NOW()
		WHERE id = $1`,
		userID, res.Health, res.MaxHealth, res.Mana, res.MaxMana, res.Stamina, res.MaxStamina,
	)
	if err != nil {
		return fmt.Errorf("saving resources: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving resources of %s: %w", userID, character.ErrNotFound)
	}
	return nil
}

// SaveModifiers persists the transient modifiers as JSON.
//
// Postcondition: Returns character.ErrNotFound if no row was updated.
func (r *CharacterRepository) SaveModifiers(ctx context.Context, userID string, mods character.Modifiers) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET modifiers = $2, updated_at = NOW() WHERE id = $1`,
		userID, mods,
	)
	if err != nil {
		return fmt.Errorf("saving modifiers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving modifiers of %s: %w", userID, character.ErrNotFound)
	}
	return nil
}

// AddExperience increments experience in one statement and returns the
// stored level with the new total.
//
// Postcondition: Returns character.ErrNotFound when no row exists.
func (r *CharacterRepository) AddExperience(ctx context.Context, userID string, amount int) (leveling.Progress, error) {
	var p leveling.Progress
	err := r.db.QueryRow(ctx, `
		UPDATE characters SET experience = experience + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING level, experience`,
		userID, amount,
	).Scan(&p.Level, &p.Experience)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leveling.Progress{}, fmt.Errorf("crediting %s: %w", userID, character.ErrNotFound)
		}
		return leveling.Progress{}, fmt.Errorf("adding experience: %w", err)
	}
	return p, nil
}

// SaveProgress persists level and remaining experience.
//
// Postcondition: Returns character.ErrNotFound if no row was updated.
func (r *CharacterRepository) SaveProgress(ctx context.Context, userID string, level, expToNext int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET level = $2, exp_to_next = $3, updated_at = NOW()
		WHERE id = $1`,
		userID, max(level, 1), expToNext,
	)
	if err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving progress of %s: %w", userID, character.ErrNotFound)
	}
	return nil
}

// LoadVitals returns attributes and resources.
//
// Postcondition: Returns character.ErrNoAttributes, with the resources, when
// any attribute column is NULL.
func (r *CharacterRepository) LoadVitals(ctx context.Context, userID string) (character.Attributes, character.Resources, error) {
	var (
		res   character.Resources
		attrs [5]*int
	)
	err := r.db.QueryRow(ctx, `
		SELECT health, max_health, mana, max_mana, stamina, max_stamina,
		       strength, agility, intelligence, charisma, constitution
		FROM characters WHERE id = $1`,
		userID,
	).Scan(
		&res.Health, &res.MaxHealth, &res.Mana, &res.MaxMana, &res.Stamina, &res.MaxStamina,
		&attrs[0], &attrs[1], &attrs[2], &attrs[3], &attrs[4],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return character.Attributes{}, character.Resources{}, fmt.Errorf("loading vitals of %s: %w", userID, character.ErrNotFound)
		}
		return character.Attributes{}, character.Resources{}, fmt.Errorf("querying vitals: %w", err)
	}
	a, ok := attributesFrom(attrs)
	if !ok {
		return character.Attributes{}, res, fmt.Errorf("loading vitals of %s: %w", userID, character.ErrNoAttributes)
	}
	return a, res, nil
}

func attributesFrom(cols [5]*int) (character.Attributes, bool) {
	for _, c := range cols {
		if c == nil {
			return character.Attributes{}, false
		}
	}
	return character.Attributes{
		Strength:     *cols[0],
		Agility:      *cols[1],
		Intelligence: *cols[2],
		Charisma:     *cols[3],
		Constitution: *cols[4],
	}, true
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
