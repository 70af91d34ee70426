package gameserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/storage/memory"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
)

// Stores bundles the persistence ports chosen by the server mode.
type Stores struct {
	Chars   CharacterStore
	Npcs    NpcStore
	Parties party.Store
	// Pool is nil in standalone mode.
	Pool *postgres.Pool
	// Memory is nil in persistent mode.
	Memory *memory.Store
}

// OpenStores connects the persistence backend selected by cfg.Server.Mode.
//
// Postcondition: the returned cleanup releases the backend; it is non-nil
// whenever err is nil.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, func(), error) {
	if !cfg.Server.Persistent() {
		mem := memory.NewStore()
		logger.Info("using in-memory storage")
		return &Stores{Chars: mem, Npcs: mem, Parties: mem, Memory: mem}, func() {}, nil
	}

	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected", zap.Duration("elapsed", time.Since(start)))
	db := pool.DB()
	return &Stores{
		Chars:   postgres.NewCharacterRepository(db),
		Npcs:    postgres.NewNpcRepository(db),
		Parties: postgres.NewPartyRepository(db),
		Pool:    pool,
	}, pool.Close, nil
}

// ProvideLevelingStore narrows the character store to what the leveling engine needs.
func ProvideLevelingStore(chars CharacterStore) leveling.Store { return chars }
