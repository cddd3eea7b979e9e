package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Unit is one alien or soldier unit type.
type Unit struct {
	Type  string
	Race  string
	Rank  string
	Value int
	Stats map[string]int
	// Armor is required: every unit wears exactly one armor.
	Armor          registry.Ref[Armor]
	BuiltInWeapons []registry.Ref[Item]
	DeathSound     int64
}

func newUnit(name string) *Unit {
	return &Unit{Type: name, DeathSound: namespace.None}
}

func loadUnit(u *Unit, f *merge.Fields) error {
	f.String("race", &u.Race)
	f.String("rank", &u.Rank)
	f.Int("value", &u.Value)
	f.IntMap("stats", &u.Stats)
	merge.Ref(f, "armor", &u.Armor)
	merge.Refs(f, "builtInWeapons", &u.BuiltInWeapons)
	f.Resource("deathSound", &u.DeathSound, namespace.SetBattleSounds)
	return f.Err()
}

func (db *Database) linkUnit(l *registry.Linker, u *Unit) {
	registry.Link(l, "armor", &u.Armor, db.Armors)
	registry.LinkList(l, "builtInWeapons", u.BuiltInWeapons, db.Items)
}
