package rules

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

var (
	xcom1     = &mod.Descriptor{ID: "xcom1", IsMaster: true, ReservedSpace: 1}
	laserPack = &mod.Descriptor{ID: "laser-pack", Master: "xcom1", ReservedSpace: 2}
)

const baseRules = `
research:
  - name: STR_LASER_WEAPONS
    cost: 300
    points: 10
    unlocks: [STR_HEAVY_LASER]
  - name: STR_HEAVY_LASER
    cost: 500
    dependencies: [STR_LASER_WEAPONS]
items:
  - type: STR_LASER_CLIP
    battleType: 2
  - type: STR_LASER_RIFLE
    requires: [STR_LASER_WEAPONS]
    battleType: 1
    power: 40
    weight: 8
    compatibleAmmo: [STR_LASER_CLIP]
    bigSprite: 60
    hitSound: 3
  - type: STR_SECTOID_CORPSE
    battleType: 11
armors:
  - type: STR_NONE_UC
    frontArmor: 12
    storeItem: STR_NONE
    damageModifier: {PLASMA: 1.5}
  - type: SECTOID_ARMOR
    frontArmor: 4
    corpseBattle: [STR_SECTOID_CORPSE]
units:
  - type: STR_SECTOID_SOLDIER
    race: STR_SECTOID
    armor: SECTOID_ARMOR
    stats: {tu: 54}
    builtInWeapons: [STR_LASER_RIFLE]
    deathSound: 60
crafts:
  - type: STR_SKYRANGER
    fuelMax: 1500
    speedMax: 760
    sprite: 12
    refuelItem: ~
manufacture:
  - name: STR_LASER_RIFLE
    category: STR_WEAPON
    requires: [STR_LASER_WEAPONS]
    time: 700
    requiredItems: {STR_LASER_CLIP: 1}
`

func loadDatabase(t *testing.T, docs map[*mod.Descriptor]string) *Database {
	t.Helper()
	table, err := namespace.Allocate([]*mod.Descriptor{xcom1, laserPack}, namespace.DefaultLimits())
	require.NoError(t, err)
	db := NewDatabase()
	e := merge.NewEngine(zaptest.NewLogger(t), ruleerr.SeverityError, namespace.NewResolver(table))
	require.NoError(t, db.Register(e))
	for _, m := range []*mod.Descriptor{xcom1, laserPack} {
		if doc, ok := docs[m]; ok {
			require.NoError(t, e.ApplyDocument(m, m.ID+".rul", []byte(doc)))
		}
	}
	require.NoError(t, db.CheckInvariants())
	return db
}

func TestLoadAndLink(t *testing.T) {
	db := loadDatabase(t, map[*mod.Descriptor]string{
		xcom1: baseRules,
		laserPack: `
items:
  - type: STR_LASER_PISTOL
    requires: [STR_LASER_WEAPONS]
    compatibleAmmo: [STR_LASER_CLIP]
    bigSprite: 60
    handSprite: {index: 130, mod: master}
`,
	})
	assert.Equal(t, registry.Unlinked, db.State())
	require.NoError(t, db.Link(zaptest.NewLogger(t), 0))
	assert.Equal(t, registry.Linked, db.State())

	rifle, ok := db.Items.Rule("STR_LASER_RIFLE")
	require.True(t, ok)
	assert.Equal(t, BattleFirearm, rifle.BattleType)
	assert.Equal(t, int64(60), rifle.BigSprite)
	assert.Equal(t, int64(3), rifle.HitSound)
	assert.Equal(t, namespace.None, rifle.FloorSprite)
	clipID, ok := rifle.CompatibleAmmo[0].ID()
	require.True(t, ok)
	assert.Equal(t, "STR_LASER_CLIP", db.Items.NameOf(clipID))

	pistol, _ := db.Items.Rule("STR_LASER_PISTOL")
	assert.Equal(t, int64(1060), pistol.BigSprite)
	assert.Equal(t, int64(130), pistol.HandSprite)

	corpse, _ := db.Items.Rule("STR_SECTOID_CORPSE")
	assert.Equal(t, BattleCorpse, corpse.BattleType)

	plain, _ := db.Armors.Rule("STR_NONE_UC")
	assert.True(t, plain.StoreItem.Absent())
	assert.Equal(t, map[string]float64{"PLASMA": 1.5}, plain.DamageModifier)

	sectoid, _ := db.Units.Rule("STR_SECTOID_SOLDIER")
	armorID, ok := sectoid.Armor.ID()
	require.True(t, ok)
	assert.Equal(t, "SECTOID_ARMOR", db.Armors.NameOf(armorID))
	assert.Equal(t, int64(60), sectoid.DeathSound)
	assert.Equal(t, 54, sectoid.Stats["tu"])

	sky, _ := db.Crafts.Rule("STR_SKYRANGER")
	assert.True(t, sky.RefuelItem.Absent())
	assert.Equal(t, 1500, sky.FuelMax)
	assert.Equal(t, 760, sky.Speed)
	assert.Equal(t, int64(12), sky.Sprite)

	proj, _ := db.Manufacture.Rule("STR_LASER_RIFLE")
	rifleID, _ := db.Items.Lookup("STR_LASER_RIFLE")
	assert.Equal(t, map[registry.ID[Item]]int{rifleID: 1}, proj.Outputs)
	clip, _ := db.Items.Lookup("STR_LASER_CLIP")
	assert.Equal(t, map[registry.ID[Item]]int{clip: 1}, proj.Inputs)

	_, _, err := db.Items.Create("STR_LATE")
	assert.ErrorIs(t, err, registry.ErrFrozen)
}

func TestLinkReportsUnknownReference(t *testing.T) {
	db := loadDatabase(t, map[*mod.Descriptor]string{
		xcom1: baseRules,
		laserPack: `
items:
  - type: STR_LASER_CANNON
    requires: "UNKNOWN_TECH"
`,
	})
	err := db.Link(zaptest.NewLogger(t), 0)
	var report *ruleerr.LinkReport
	require.ErrorAs(t, err, &report)
	require.Len(t, report.Failures, 1)
	f := report.Failures[0]
	assert.Equal(t, KindItems, f.Kind)
	assert.Equal(t, "STR_LASER_CANNON", f.Rule)
	assert.Equal(t, "UNKNOWN_TECH", f.Name)
	assert.Equal(t, KindResearch, f.Target)
	assert.Equal(t, registry.Failed, db.State())
	assert.False(t, db.Items.Frozen())
}

func TestUnitArmorIsRequired(t *testing.T) {
	db := loadDatabase(t, map[*mod.Descriptor]string{
		xcom1: "units:\n  - type: STR_FLOATER\n",
	})
	err := db.Link(zaptest.NewLogger(t), 0)
	var report *ruleerr.LinkReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, "armor", report.Failures[0].Field)
}

func TestLinkStopsAtLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("research:\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "  - name: STR_TOPIC_%02d\n    dependencies: [STR_MISSING_%02d]\n", i, i)
	}
	db := loadDatabase(t, map[*mod.Descriptor]string{xcom1: b.String()})
	err := db.Link(zaptest.NewLogger(t), registry.DefaultMaxLinkErrors)
	var report *ruleerr.LinkReport
	require.ErrorAs(t, err, &report)
	assert.Len(t, report.Failures, registry.DefaultMaxLinkErrors)
	assert.True(t, report.Aborted)
	assert.Equal(t, "STR_TOPIC_00", report.Failures[0].Rule)
}

func TestLinkIsDeterministic(t *testing.T) {
	docs := map[*mod.Descriptor]string{xcom1: baseRules}
	a := loadDatabase(t, docs)
	b := loadDatabase(t, docs)
	require.NoError(t, a.Link(zaptest.NewLogger(t), 0))
	require.NoError(t, b.Link(zaptest.NewLogger(t), 0))
	for _, name := range a.Items.Names() {
		ra, _ := a.Items.Rule(name)
		rb, _ := b.Items.Rule(name)
		for i := range ra.CompatibleAmmo {
			ia, _ := ra.CompatibleAmmo[i].ID()
			ib, _ := rb.CompatibleAmmo[i].ID()
			assert.Equal(t, ia.Index(), ib.Index(), name)
		}
	}
	assert.Equal(t, a.Items.Names(), b.Items.Names())
}

func TestProducedDefaultsToSelf(t *testing.T) {
	m := &Manufacture{Name: "STR_LASER_RIFLE"}
	assert.Equal(t, map[string]int{"STR_LASER_RIFLE": 1}, m.Produced())
	m.ProducedItems = map[string]int{"STR_LASER_CLIP": 4}
	assert.Equal(t, map[string]int{"STR_LASER_CLIP": 4}, m.Produced())
}

func TestViews(t *testing.T) {
	db := NewDatabase()
	assert.Len(t, db.Views(), 6)
	v, ok := db.View(KindCrafts)
	require.True(t, ok)
	assert.Equal(t, KindCrafts, v.Kind())
	_, ok = db.View("ufos")
	assert.False(t, ok)
	assert.Len(t, db.Collections(), 6)
}
