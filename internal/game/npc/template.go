// Package npc provides NPC templates, live instances, spawn points, respawn
// scheduling, and loot tables.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GoldRange is the inclusive gold-drop range of a template.
type GoldRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Level       int    `yaml:"level"`
	MaxHealth   int    `yaml:"max_health"`
	Hostile     bool   `yaml:"hostile"`
	// Attackable defaults to true when omitted.
	Attackable *bool     `yaml:"attackable"`
	Gold       GoldRange `yaml:"gold"`
	// GoldByLevel replaces the gold range with the level-based gold formula.
	GoldByLevel bool `yaml:"gold_by_level"`
	// LootTable names the loot table to roll on death; empty uses ID.
	LootTable string `yaml:"loot_table"`
	// DeathEffect is the visual effect broadcast on death; 0 means none.
	DeathEffect int `yaml:"death_effect"`
	// RespawnDelay is a duration string ("30s", "5m"). Empty means the
	// template does not respawn unless its spawn point sets a delay.
	RespawnDelay string `yaml:"respawn_delay"`
}

// IsAttackable reports whether players may attack instances of t.
func (t *Template) IsAttackable() bool {
	return t.Attackable == nil || *t.Attackable
}

// LootTableID returns the loot table rolled for t.
func (t *Template) LootTableID() string {
	if t.LootTable != "" {
		return t.LootTable
	}
	return t.ID
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// MaxHealth >= 1, 0 <= Gold.Min <= Gold.Max, and RespawnDelay parses.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("npc template %q: level must be >= 1", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("npc template %q: max_health must be >= 1", t.ID)
	}
	if t.Gold.Min < 0 || t.Gold.Min > t.Gold.Max {
		return fmt.Errorf("npc template %q: gold range [%d, %d] is invalid", t.ID, t.Gold.Min, t.Gold.Max)
	}
	if t.RespawnDelay != "" {
		if _, err := time.ParseDuration(t.RespawnDelay); err != nil {
			return fmt.Errorf("npc template %q: respawn_delay %q is not a valid duration: %w", t.ID, t.RespawnDelay, err)
		}
	}
	return nil
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
