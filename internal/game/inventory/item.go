// Package inventory provides the item catalog, ground items, and equipped
// gear lookups used by combat.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Kind constants for ItemDef.Kind.
const (
	KindWeapon     = "weapon"
	KindArmor      = "armor"
	KindConsumable = "consumable"
	KindCurrency   = "currency"
	KindJunk       = "junk"
)

// GoldItemID is the catalog ID of the gold ground item.
const GoldItemID = "gold"

var validKinds = map[string]bool{
	KindWeapon:     true,
	KindArmor:      true,
	KindConsumable: true,
	KindCurrency:   true,
	KindJunk:       true,
}

// ItemDef defines the static properties of an item loaded from YAML.
type ItemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	// Graphic is the client sprite shown for the item on the ground; 0 means
	// the item cannot be displayed.
	Graphic        int     `yaml:"graphic"`
	Damage         int     `yaml:"damage"`
	ArmorReduction float64 `yaml:"armor_reduction"`
	Stackable      bool    `yaml:"stackable"`
	Value          int     `yaml:"value"`
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Errorf("Kind must be one of weapon, armor, consumable, currency, junk; got %q", d.Kind))
	}
	if d.Graphic < 0 {
		errs = append(errs, errors.New("Graphic must be >= 0"))
	}
	if d.Kind == KindWeapon && d.Damage < 0 {
		errs = append(errs, errors.New("Damage must be >= 0"))
	}
	if d.ArmorReduction < 0 || d.ArmorReduction >= 1 {
		errs = append(errs, fmt.Errorf("ArmorReduction must be in [0, 1), got %v", d.ArmorReduction))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice.
//
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir string) ([]*ItemDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*ItemDef
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var d ItemDef
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		items = append(items, &d)
	}
	return items, nil
}
