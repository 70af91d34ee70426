package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlMap is the on-disk map format. Each collision row is a string where
// '#' marks a blocked tile; rows start at y = origin_y.
type yamlMap struct {
	ID        int      `yaml:"id"`
	Name      string   `yaml:"name"`
	Width     int      `yaml:"width"`
	Height    int      `yaml:"height"`
	OriginX   int      `yaml:"origin_x"`
	OriginY   int      `yaml:"origin_y"`
	Collision []string `yaml:"collision"`
}

// LoadMapFromFile reads and parses a single map YAML file.
func LoadMapFromFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %q: %w", path, err)
	}
	m, err := LoadMapFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return m, nil
}

// LoadMapFromBytes parses a map from raw YAML.
//
// Postcondition: Returns a validated Map or an error.
func LoadMapFromBytes(data []byte) (*Map, error) {
	var ym yamlMap
	if err := yaml.Unmarshal(data, &ym); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}
	m := NewMap(ym.ID, ym.Name, ym.Width, ym.Height)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	for dy, row := range ym.Collision {
		for dx, c := range row {
			if c == '#' {
				m.Block(ym.OriginX+dx, ym.OriginY+dy)
			}
		}
	}
	return m, nil
}

// LoadMapsFromDir loads every *.yaml file in dir.
func LoadMapsFromDir(dir string) ([]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading maps dir %q: %w", dir, err)
	}
	var maps []*Map
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		m, err := LoadMapFromFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}
