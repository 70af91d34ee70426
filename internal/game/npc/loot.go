package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// LootEntry is one possible item drop.
type LootEntry struct {
	ItemID string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
	// Quantity is a dice expression ("1", "1d3", "2d4+1"); empty means 1.
	Quantity string `yaml:"quantity"`

	qty dice.Expression
}

// LootTable lists the possible drops of one NPC template.
type LootTable struct {
	ID      string      `yaml:"id"`
	Entries []LootEntry `yaml:"items"`
}

// Drop is one rolled (item, quantity) pair.
type Drop struct {
	ItemID   string
	Quantity int
}

// Validate checks the table and compiles its quantity expressions.
//
// Postcondition: Returns nil iff every entry has an item, a chance in (0, 1],
// and a parseable quantity.
func (lt *LootTable) Validate() error {
	if lt.ID == "" {
		return fmt.Errorf("loot table: id must not be empty")
	}
	for i := range lt.Entries {
		e := &lt.Entries[i]
		if e.ItemID == "" {
			return fmt.Errorf("loot table %q: item[%d] must have a non-empty item id", lt.ID, i)
		}
		if e.Chance <= 0 || e.Chance > 1.0 {
			return fmt.Errorf("loot table %q: item[%d] chance must be in (0, 1.0], got %f", lt.ID, i, e.Chance)
		}
		q := e.Quantity
		if q == "" {
			q = "1"
		}
		expr, err := dice.Parse(q)
		if err != nil {
			return fmt.Errorf("loot table %q: item[%d] quantity: %w", lt.ID, i, err)
		}
		e.qty = expr
	}
	return nil
}

// Roll draws the table's drops with r.
//
// Precondition: lt must have passed Validate().
// Postcondition: every drop has Quantity >= 1.
func (lt *LootTable) Roll(r dice.Random) []Drop {
	var out []Drop
	for _, e := range lt.Entries {
		if !dice.Chance(r, e.Chance) {
			continue
		}
		qty := dice.RollRandom(e.qty, r).Total()
		if qty < 1 {
			continue
		}
		out = append(out, Drop{ItemID: e.ItemID, Quantity: qty})
	}
	return out
}

// LootTables is the loot-table provider keyed by table ID.
type LootTables struct {
	tables map[string]*LootTable
	rng    dice.Random
}

// NewLootTables indexes validated tables.
//
// Precondition: every table must have passed Validate(); rng must be non-nil.
func NewLootTables(tables []*LootTable, rng dice.Random) *LootTables {
	m := make(map[string]*LootTable, len(tables))
	for _, t := range tables {
		m[t.ID] = t
	}
	return &LootTables{tables: m, rng: rng}
}

// DropsFor rolls the table tableID.
//
// Postcondition: an unknown table yields no drops.
func (l *LootTables) DropsFor(tableID string) []Drop {
	t, ok := l.tables[tableID]
	if !ok {
		return nil
	}
	return t.Roll(l.rng)
}

// LoadLootTables reads every *.yaml file in dir as one LootTable.
func LoadLootTables(dir string) ([]*LootTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading loot dir %q: %w", dir, err)
	}
	var tables []*LootTable
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var lt LootTable
		if err := yaml.Unmarshal(data, &lt); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := lt.Validate(); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		tables = append(tables, &lt)
	}
	return tables, nil
}
