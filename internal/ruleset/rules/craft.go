package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Craft is one interceptor or transport type.
type Craft struct {
	Type     string
	Requires []registry.Ref[Research]
	Sprite   int64
	FuelMax  int
	Damage   int
	Speed    int
	Weapons  int
	Soldiers int
	// RefuelItem is consumed while refuelling; optional.
	RefuelItem registry.Ref[Item]
}

func newCraft(name string) *Craft {
	return &Craft{Type: name, Sprite: namespace.None}
}

func loadCraft(c *Craft, f *merge.Fields) error {
	merge.Refs(f, "requires", &c.Requires)
	f.Resource("sprite", &c.Sprite, namespace.SetCraftSprites)
	f.Int("fuelMax", &c.FuelMax)
	f.Int("damageMax", &c.Damage)
	f.Int("speedMax", &c.Speed)
	f.Int("weapons", &c.Weapons)
	f.Int("soldiers", &c.Soldiers)
	merge.Ref(f, "refuelItem", &c.RefuelItem)
	return f.Err()
}

func (db *Database) linkCraft(l *registry.Linker, c *Craft) {
	registry.LinkList(l, "requires", c.Requires, db.Research)
	registry.LinkOptional(l, "refuelItem", &c.RefuelItem, db.Items)
}
