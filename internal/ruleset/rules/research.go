package rules

import (
	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// Research is one research project.
type Research struct {
	Name         string
	Cost         int
	Points       int
	ListOrder    int
	NeedItem     bool
	Dependencies []registry.Ref[Research]
	Unlocks      []registry.Ref[Research]
	// GetOneFree lists projects granted at random on completion.
	GetOneFree []registry.Ref[Research]
}

func newResearch(name string) *Research {
	return &Research{Name: name}
}

func loadResearch(r *Research, f *merge.Fields) error {
	f.Int("cost", &r.Cost)
	f.Int("points", &r.Points)
	f.Int("listOrder", &r.ListOrder)
	f.Bool("needItem", &r.NeedItem)
	merge.Refs(f, "dependencies", &r.Dependencies)
	merge.Refs(f, "unlocks", &r.Unlocks)
	merge.Refs(f, "getOneFree", &r.GetOneFree)
	return f.Err()
}

func (db *Database) linkResearch(l *registry.Linker, r *Research) {
	registry.LinkList(l, "dependencies", r.Dependencies, db.Research)
	registry.LinkList(l, "unlocks", r.Unlocks, db.Research)
	registry.LinkList(l, "getOneFree", r.GetOneFree, db.Research)
}
