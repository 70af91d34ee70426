package inventory

import "fmt"

// Catalog holds every loaded ItemDef indexed by ID.
// It is read-only after loading.
type Catalog struct {
	items map[string]*ItemDef
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*ItemDef)}
}

// Register adds d to the catalog.
//
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (c *Catalog) Register(d *ItemDef) error {
	if _, exists := c.items[d.ID]; exists {
		return fmt.Errorf("inventory: Catalog.Register: item ID %q already registered", d.ID)
	}
	c.items[d.ID] = d
	return nil
}

// Item returns the ItemDef for the given id and whether it was found.
func (c *Catalog) Item(id string) (*ItemDef, bool) {
	d, ok := c.items[id]
	return d, ok
}

// Displayable returns the item's definition when it exists and has a ground graphic.
func (c *Catalog) Displayable(id string) (*ItemDef, bool) {
	d, ok := c.items[id]
	if !ok || d.Graphic <= 0 {
		return nil, false
	}
	return d, true
}

// Len returns the number of registered items.
func (c *Catalog) Len() int { return len(c.items) }
