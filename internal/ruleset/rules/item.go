package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// BattleType classifies how an item behaves on the battlescape.
type BattleType int

const (
	BattleNone BattleType = iota
	BattleFirearm
	BattleAmmo
	BattleMelee
	BattleGrenade
	BattleMedikit
	BattleCorpse BattleType = 11
)

// Item is one item type. Resource fields hold absolute indices.
type Item struct {
	Type       string
	Name       string
	Categories []string
	Requires   []registry.Ref[Research]
	BattleType BattleType
	Power      int
	Weight     int
	CostBuy    int
	CostSell   int
	ClipSize   int
	ListOrder  int
	// CompatibleAmmo lists the clips a weapon accepts.
	CompatibleAmmo []registry.Ref[Item]
	// Tags carries free-form integer properties used by scripts.
	Tags map[string]int

	BigSprite   int64
	FloorSprite int64
	HandSprite  int64
	FireSound   int64
	HitSound    int64
}

func newItem(name string) *Item {
	return &Item{
		Type:        name,
		Name:        name,
		BigSprite:   namespace.None,
		FloorSprite: namespace.None,
		HandSprite:  namespace.None,
		FireSound:   namespace.None,
		HitSound:    namespace.None,
	}
}

func loadItem(it *Item, f *merge.Fields) error {
	f.String("name", &it.Name)
	f.Strings("categories", &it.Categories)
	merge.Refs(f, "requires", &it.Requires)
	battle := int(it.BattleType)
	f.Int("battleType", &battle)
	it.BattleType = BattleType(battle)
	f.Int("power", &it.Power)
	f.Int("weight", &it.Weight)
	f.Int("costBuy", &it.CostBuy)
	f.Int("costSell", &it.CostSell)
	f.Int("clipSize", &it.ClipSize)
	f.Int("listOrder", &it.ListOrder)
	merge.Refs(f, "compatibleAmmo", &it.CompatibleAmmo)
	f.IntMap("tags", &it.Tags)
	f.Resource("bigSprite", &it.BigSprite, namespace.SetBigSprites)
	f.Resource("floorSprite", &it.FloorSprite, namespace.SetFloorSprites)
	f.Resource("handSprite", &it.HandSprite, namespace.SetHandSprites)
	f.Resource("fireSound", &it.FireSound, namespace.SetBattleSounds)
	f.Resource("hitSound", &it.HitSound, namespace.SetBattleSounds)
	return f.Err()
}

func (db *Database) linkItem(l *registry.Linker, it *Item) {
	registry.LinkList(l, "requires", it.Requires, db.Research)
	registry.LinkList(l, "compatibleAmmo", it.CompatibleAmmo, db.Items)
}
