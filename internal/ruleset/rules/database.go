// Package rules defines the concrete rule kinds, the Database that owns one
// registry per kind, and the link pass over all of them.
package rules

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Collection keys and kind names.
const (
	KindResearch    = "research"
	KindItems       = "items"
	KindArmors      = "armors"
	KindUnits       = "units"
	KindCrafts      = "crafts"
	KindManufacture = "manufacture"
)

// Database owns one registry per rule kind. It is written only while a load
// runs; once Link succeeds every registry is frozen and the Database is safe
// for concurrent readers.
type Database struct {
	Research    *registry.Registry[Research]
	Items       *registry.Registry[Item]
	Armors      *registry.Registry[Armor]
	Units       *registry.Registry[Unit]
	Crafts      *registry.Registry[Craft]
	Manufacture *registry.Registry[Manufacture]

	state registry.LinkState
}

// NewDatabase returns an empty, unlinked Database.
func NewDatabase() *Database {
	return &Database{
		Research:    registry.New(KindResearch, newResearch),
		Items:       registry.New(KindItems, newItem),
		Armors:      registry.New(KindArmors, newArmor),
		Units:       registry.New(KindUnits, newUnit),
		Crafts:      registry.New(KindCrafts, newCraft),
		Manufacture: registry.New(KindManufacture, newManufacture),
	}
}

// Collections returns the document bindings of every kind. Their order is
// the order collections are applied within one document.
func (db *Database) Collections() []merge.Collection {
	return []merge.Collection{
		merge.Bind(KindResearch, "name", db.Research, loadResearch),
		merge.Bind(KindItems, "type", db.Items, loadItem),
		merge.Bind(KindArmors, "type", db.Armors, loadArmor),
		merge.Bind(KindUnits, "type", db.Units, loadUnit),
		merge.Bind(KindCrafts, "type", db.Crafts, loadCraft),
		merge.Bind(KindManufacture, "name", db.Manufacture, loadManufacture),
	}
}

// Register binds every collection of db to e.
func (db *Database) Register(e *merge.Engine) error {
	for _, c := range db.Collections() {
		if err := e.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Views returns the kind-erased registries in collection order.
func (db *Database) Views() []registry.View {
	return []registry.View{db.Research, db.Items, db.Armors, db.Units, db.Crafts, db.Manufacture}
}

// View returns the registry of kind.
func (db *Database) View(kind string) (registry.View, bool) {
	for _, v := range db.Views() {
		if v.Kind() == kind {
			return v, true
		}
	}
	return nil, false
}

// State returns the outcome of the last link pass.
func (db *Database) State() registry.LinkState { return db.state }

// CheckInvariants verifies every registry's name index.
func (db *Database) CheckInvariants() error {
	return errors.Join(
		db.Research.CheckInvariant(),
		db.Items.CheckInvariant(),
		db.Armors.CheckInvariant(),
		db.Units.CheckInvariant(),
		db.Crafts.CheckInvariant(),
		db.Manufacture.CheckInvariant(),
	)
}

var errLinkFull = errors.New("link error limit reached")

// Link resolves every by-name reference in every registry. maxErrors bounds
// the failures collected before the pass stops; <= 0 uses
// registry.DefaultMaxLinkErrors. Rules are visited kind by kind in
// insertion order, so repeated passes over the same state bind the same
// handles.
//
// Postcondition: On success State() is Linked and every registry is frozen.
// On failure State() is Failed and a *ruleerr.LinkReport is returned.
func (db *Database) Link(logger *zap.Logger, maxErrors int) error {
	l := registry.NewLinker(maxErrors)
	if err := l.Begin(); err != nil {
		return err
	}
	db.state = registry.Linking
	walk := []error{
		linkEach(l, db.Research, db.linkResearch),
		linkEach(l, db.Items, db.linkItem),
		linkEach(l, db.Armors, db.linkArmor),
		linkEach(l, db.Units, db.linkUnit),
		linkEach(l, db.Crafts, db.linkCraft),
		linkEach(l, db.Manufacture, db.linkManufacture),
	}
	for _, err := range walk {
		if err != nil && !errors.Is(err, errLinkFull) {
			return fmt.Errorf("walking rules: %w", err)
		}
	}
	if err := l.Finish(); err != nil {
		db.state = registry.Failed
		logger.Error("link pass failed",
			zap.Int("failures", len(l.Failures())),
			zap.Bool("aborted", l.Full()),
		)
		return err
	}
	db.state = registry.Linked
	db.freeze()
	logger.Info("link pass complete",
		zap.Int("research", db.Research.Len()),
		zap.Int("items", db.Items.Len()),
		zap.Int("armors", db.Armors.Len()),
		zap.Int("units", db.Units.Len()),
		zap.Int("crafts", db.Crafts.Len()),
		zap.Int("manufacture", db.Manufacture.Len()),
	)
	return nil
}

func linkEach[T any](l *registry.Linker, reg *registry.Registry[T], link func(*registry.Linker, *T)) error {
	return reg.Each(func(name string, rule *T) error {
		if l.Full() {
			return errLinkFull
		}
		l.Owner(reg.Kind(), name)
		link(l, rule)
		return nil
	})
}

func (db *Database) freeze() {
	db.Research.Freeze()
	db.Items.Freeze()
	db.Armors.Freeze()
	db.Units.Freeze()
	db.Crafts.Freeze()
	db.Manufacture.Freeze()
}
