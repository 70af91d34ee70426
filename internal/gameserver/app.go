package gameserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// App is the assembled combat, reward and leveling engine.
type App struct {
	Stores   *Stores
	Content  *Content
	Sessions *session.Manager
	Npcs     *npc.Manager
	Respawn  *npc.RespawnManager
	Combat   *CombatHandler
	Leveling *leveling.Engine
	Parties  *party.Registry
	Tasks    *WorldTasks
	Ticks    *TickManager
	Service  *GameServiceServer
	Logger   *zap.Logger
}

// Populate spawns the initial NPCs and restores any health stored for them.
//
// Postcondition: returns the number of instances created.
func (a *App) Populate(ctx context.Context) int {
	insts := a.Respawn.Populate(a.Npcs)
	a.Tasks.RestoreHealth(ctx, insts)
	a.Logger.Info("initial npc population complete", zap.Int("instances", len(insts)))
	return len(insts)
}
