package lotgo

import "fmt"

// Zone describes one zone of the fixed inventory.
type Zone struct {
	Name  string `yaml:"name"`
	Spots int    `yaml:"spots"`
}

// Layout is the fixed resource inventory, created once at engine start.
type Layout []Zone

// DefaultLayout mirrors the reference lot: zones A-F, with the outer zones
// A and F holding 14 spots and the inner zones 12.
func DefaultLayout() Layout {
	return Layout{
		{Name: "A", Spots: 14},
		{Name: "B", Spots: 12},
		{Name: "C", Spots: 12},
		{Name: "D", Spots: 12},
		{Name: "E", Spots: 12},
		{Name: "F", Spots: 14},
	}
}

// SpotIDs expands the layout into ordered spot identifiers
// (zone name + 1-based index).
func (l Layout) SpotIDs() []string {
	var ids []string
	for _, z := range l {
		for i := 1; i <= z.Spots; i++ {
			ids = append(ids, fmt.Sprintf("%s%d", z.Name, i))
		}
	}
	return ids
}
