// Package world provides tile maps and their collision data.
package world

import "fmt"

// Map is one tile grid. Tiles outside [0, Width) × [0, Height) are blocked.
type Map struct {
	ID      int
	Name    string
	Width   int
	Height  int
	blocked map[[2]int]bool
}

// NewMap creates an open map of the given size.
//
// Precondition: width and height must be >= 1.
func NewMap(id int, name string, width, height int) *Map {
	return &Map{ID: id, Name: name, Width: width, Height: height, blocked: make(map[[2]int]bool)}
}

// Block marks (x, y) as impassable.
func (m *Map) Block(x, y int) {
	m.blocked[[2]int{x, y}] = true
}

// InBounds reports whether (x, y) lies on the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Blocked reports whether (x, y) cannot hold a character or ground item.
func (m *Map) Blocked(x, y int) bool {
	return !m.InBounds(x, y) || m.blocked[[2]int{x, y}]
}

// Validate checks the map's dimensions.
func (m *Map) Validate() error {
	if m.Width < 1 || m.Height < 1 {
		return fmt.Errorf("map %d: dimensions %dx%d must be positive", m.ID, m.Width, m.Height)
	}
	if m.Name == "" {
		return fmt.Errorf("map %d: name must not be empty", m.ID)
	}
	return nil
}
