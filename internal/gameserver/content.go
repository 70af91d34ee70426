package gameserver

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/world"
)

// Content is the static game data loaded at startup.
type Content struct {
	Maps      *world.Manager
	Catalog   *inventory.Catalog
	Templates map[string]*npc.Template
	Spawns    []npc.SpawnPoint
	Loot      []*npc.LootTable
}

// LoadContent reads maps, items, NPC templates, loot tables and spawn points
// from the configured content paths.
//
// Postcondition: every spawn point references a loaded template and a loaded
// map, or an error is returned.
func LoadContent(cfg config.Config, logger *zap.Logger) (*Content, error) {
	start := time.Now()
	paths := cfg.Content

	maps, err := world.LoadMapsFromDir(paths.MapDir)
	if err != nil {
		return nil, fmt.Errorf("loading maps: %w", err)
	}
	worldMgr, err := world.NewManager(maps)
	if err != nil {
		return nil, fmt.Errorf("creating world manager: %w", err)
	}

	items, err := inventory.LoadItems(paths.ItemDir)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	catalog := inventory.NewCatalog()
	for _, it := range items {
		if err := catalog.Register(it); err != nil {
			return nil, err
		}
	}

	tmpls, err := npc.LoadTemplates(paths.NPCDir)
	if err != nil {
		return nil, fmt.Errorf("loading npc templates: %w", err)
	}
	templates := make(map[string]*npc.Template, len(tmpls))
	for _, t := range tmpls {
		templates[t.ID] = t
	}

	loot, err := npc.LoadLootTables(paths.LootDir)
	if err != nil {
		return nil, fmt.Errorf("loading loot tables: %w", err)
	}

	spawns, err := npc.LoadSpawns(paths.SpawnFile)
	if err != nil {
		return nil, fmt.Errorf("loading spawns: %w", err)
	}
	for _, sp := range spawns {
		if _, ok := templates[sp.TemplateID]; !ok {
			return nil, fmt.Errorf("spawn at map %d (%d,%d) references unknown npc template %q", sp.MapID, sp.X, sp.Y, sp.TemplateID)
		}
		if _, ok := worldMgr.Map(sp.MapID); !ok {
			return nil, fmt.Errorf("spawn of %q references unknown map %d", sp.TemplateID, sp.MapID)
		}
	}

	logger.Info("content loaded",
		zap.Int("maps", worldMgr.MapCount()),
		zap.Int("items", catalog.Len()),
		zap.Int("npc_templates", len(templates)),
		zap.Int("loot_tables", len(loot)),
		zap.Int("spawns", len(spawns)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Content{Maps: worldMgr, Catalog: catalog, Templates: templates, Spawns: spawns, Loot: loot}, nil
}
