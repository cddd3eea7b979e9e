package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Armor is one armor type worn by units.
type Armor struct {
	Type        string
	FrontArmor  int
	SideArmor   int
	RearArmor   int
	UnderArmor  int
	Weight      int
	SpriteSheet string
	// StoreItem is the item the armor is stored as; optional.
	StoreItem registry.Ref[Item]
	// CorpseBattle lists the corpse items left per tile of the unit.
	CorpseBattle   []registry.Ref[Item]
	DamageModifier map[string]float64
}

func newArmor(name string) *Armor {
	return &Armor{Type: name}
}

func loadArmor(a *Armor, f *merge.Fields) error {
	f.Int("frontArmor", &a.FrontArmor)
	f.Int("sideArmor", &a.SideArmor)
	f.Int("rearArmor", &a.RearArmor)
	f.Int("underArmor", &a.UnderArmor)
	f.Int("weight", &a.Weight)
	f.String("spriteSheet", &a.SpriteSheet)
	merge.Ref(f, "storeItem", &a.StoreItem)
	merge.Refs(f, "corpseBattle", &a.CorpseBattle)
	f.FloatMap("damageModifier", &a.DamageModifier)
	return f.Err()
}

func (db *Database) linkArmor(l *registry.Linker, a *Armor) {
	registry.LinkOptional(l, "storeItem", &a.StoreItem, db.Items)
	registry.LinkList(l, "corpseBattle", a.CorpseBattle, db.Items)
}
