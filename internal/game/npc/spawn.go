package npc

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// SpawnPoint places instances of one template at one tile.
//
// Invariant: Max >= 1; a zero RespawnDelay defers to the template's delay.
type SpawnPoint struct {
	TemplateID   string        `yaml:"template"`
	MapID        int           `yaml:"map"`
	X            int           `yaml:"x"`
	Y            int           `yaml:"y"`
	Max          int           `yaml:"max"`
	RespawnDelay time.Duration `yaml:"respawn_delay"`
}

// Position returns the spawn tile.
func (s SpawnPoint) Position() combat.Position {
	return combat.Position{MapID: s.MapID, X: s.X, Y: s.Y}
}

type spawnFile struct {
	Spawns []SpawnPoint `yaml:"spawns"`
}

// LoadSpawns reads spawn points from a YAML file with a top-level spawns list.
//
// Postcondition: every returned spawn has a template and Max >= 1.
func LoadSpawns(path string) ([]SpawnPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spawns %q: %w", path, err)
	}
	var f spawnFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing spawns %q: %w", path, err)
	}
	for i, s := range f.Spawns {
		if s.TemplateID == "" {
			return nil, fmt.Errorf("spawns %q: entry %d has no template", path, i)
		}
		if s.Max < 1 {
			f.Spawns[i].Max = 1
		}
	}
	return f.Spawns, nil
}
