package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Manufacture is one workshop project.
type Manufacture struct {
	Name     string
	Category string
	Requires []registry.Ref[Research]
	Time     int
	Cost     int
	// RequiredItems and ProducedItems are keyed by item name as written;
	// the link pass fills the handle-keyed Inputs and Outputs.
	RequiredItems map[string]int
	ProducedItems map[string]int

	Inputs  map[registry.ID[Item]]int
	Outputs map[registry.ID[Item]]int
}

func newManufacture(name string) *Manufacture {
	return &Manufacture{Name: name}
}

func loadManufacture(m *Manufacture, f *merge.Fields) error {
	f.String("category", &m.Category)
	merge.Refs(f, "requires", &m.Requires)
	f.Int("time", &m.Time)
	f.Int("cost", &m.Cost)
	f.IntMap("requiredItems", &m.RequiredItems)
	f.IntMap("producedItems", &m.ProducedItems)
	return f.Err()
}

// Produced returns the items the project yields. A project that lists no
// produced items yields one item named after itself.
func (m *Manufacture) Produced() map[string]int {
	if len(m.ProducedItems) == 0 {
		return map[string]int{m.Name: 1}
	}
	return m.ProducedItems
}

func (db *Database) linkManufacture(l *registry.Linker, m *Manufacture) {
	registry.LinkList(l, "requires", m.Requires, db.Research)
	m.Inputs = registry.LinkKeys(l, "requiredItems", m.RequiredItems, db.Items)
	m.Outputs = registry.LinkKeys(l, "producedItems", m.Produced(), db.Items)
}
