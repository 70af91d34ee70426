package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NpcRepository persists NPC instance health between restarts.
type NpcRepository struct {
	db *pgxpool.Pool
}

// NewNpcRepository creates an NpcRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewNpcRepository(db *pgxpool.Pool) *NpcRepository {
	return &NpcRepository{db: db}
}

// SaveNpcHealth upserts the health of one instance.
func (r *NpcRepository) SaveNpcHealth(ctx context.Context, instanceID string, health, maxHealth int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO npc_instances (id, health, max_health)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET health = EXCLUDED.health, max_health = EXCLUDED.max_health, updated_at = NOW()`,
		instanceID, health, maxHealth,
	)
	if err != nil {
		return fmt.Errorf("saving npc health: %w", err)
	}
	return nil
}

// DeleteNpc removes the stored state of one instance. Deleting an unknown
// instance is not an error.
func (r *NpcRepository) DeleteNpc(ctx context.Context, instanceID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM npc_instances WHERE id = $1`, instanceID); err != nil {
		return fmt.Errorf("deleting npc: %w", err)
	}
	return nil
}

// LoadNpcHealth returns the stored health of one instance.
//
// Postcondition: ok is false when nothing is stored.
func (r *NpcRepository) LoadNpcHealth(ctx context.Context, instanceID string) (current, maximum int, ok bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT health, max_health FROM npc_instances WHERE id = $1`,
		instanceID,
	).Scan(&current, &maximum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("querying npc health: %w", err)
	}
	return current, maximum, true, nil
}
