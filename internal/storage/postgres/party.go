package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/game/party"
)

// ErrPartyNotFound is returned when a party lookup yields no results.
var ErrPartyNotFound = errors.New("party not found")

// PartyRepository persists party snapshots.
type PartyRepository struct {
	db *pgxpool.Pool
}

// NewPartyRepository creates a PartyRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPartyRepository(db *pgxpool.Pool) *PartyRepository {
	return &PartyRepository{db: db}
}

// SaveParty replaces the stored party and its member rows in one transaction.
func (r *PartyRepository) SaveParty(ctx context.Context, s party.Snapshot) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO parties (id, leader, total_exp_earned, undistributed_exp)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET leader = EXCLUDED.leader,
			    total_exp_earned = EXCLUDED.total_exp_earned,
			    undistributed_exp = EXCLUDED.undistributed_exp,
			    updated_at = NOW()`,
			s.ID, s.Leader, s.TotalExpEarned, s.UndistributedExp,
		); err != nil {
			return fmt.Errorf("saving party: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM party_members WHERE party_id = $1`, s.ID); err != nil {
			return fmt.Errorf("clearing party members: %w", err)
		}
		batch := &pgx.Batch{}
		for i, m := range s.Members {
			batch.Queue(`
				INSERT INTO party_members
					(party_id, user_id, position, username, level, earned, pooled, online, last_seen)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				s.ID, m.UserID, i, m.Username, max(m.Level, 1), m.Earned, m.Pooled, m.Online, m.LastSeen,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("saving party members: %w", err)
		}
		return nil
	})
}

// DeleteParty removes a party and, by cascade, its members.
func (r *PartyRepository) DeleteParty(ctx context.Context, partyID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM parties WHERE id = $1`, partyID); err != nil {
		return fmt.Errorf("deleting party: %w", err)
	}
	return nil
}

// LoadParty returns the stored snapshot of partyID with members in join order.
//
// Postcondition: Returns ErrPartyNotFound when no row exists.
func (r *PartyRepository) LoadParty(ctx context.Context, partyID string) (party.Snapshot, error) {
	var s party.Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT id, leader, total_exp_earned, undistributed_exp
		FROM parties WHERE id = $1`,
		partyID,
	).Scan(&s.ID, &s.Leader, &s.TotalExpEarned, &s.UndistributedExp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return party.Snapshot{}, ErrPartyNotFound
		}
		return party.Snapshot{}, fmt.Errorf("querying party: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id, username, level, earned, pooled, online, last_seen
		FROM party_members WHERE party_id = $1 ORDER BY position ASC`,
		partyID,
	)
	if err != nil {
		return party.Snapshot{}, fmt.Errorf("querying party members: %w", err)
	}
	s.Members, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (party.Member, error) {
		var m party.Member
		err := row.Scan(&m.UserID, &m.Username, &m.Level, &m.Earned, &m.Pooled, &m.Online, &m.LastSeen)
		return m, err
	})
	if err != nil {
		return party.Snapshot{}, fmt.Errorf("scanning party members: %w", err)
	}
	return s, nil
}
