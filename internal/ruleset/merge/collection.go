package merge

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
)

// LoadFunc populates rule from one mapping node. Fields the node does not
// mention must be left as they are.
type LoadFunc[T any] func(rule *T, f *Fields) error

// Collection is the kind-erased binding between a document collection key
// (such as "items") and the registry that stores its rules.
type Collection interface {
	// Name is the top-level document key of the collection.
	Name() string
	// NaturalKey is the field whose presence implies create-or-override.
	NaturalKey() string
	// View exposes the underlying registry read-only.
	View() registry.View
	// Apply runs d and, when it yields a rule, loads each node of chain in
	// order (templates first, the rule node last).
	Apply(ctx *Context, d registry.Directive, chain []*yaml.Node) (Applied, error)
}

// Applied reports what one directive did.
type Applied struct {
	Outcome registry.Outcome
	// Recognized lists the keys the load function understands.
	Recognized []string
	// Warnings lists recoverable problems found while loading the nodes:
	// keys nothing consumed, repeated keys and the like.
	Warnings []Warning
}

// Warning is a recoverable problem at one node.
type Warning struct {
	Node *yaml.Node
	Err  error
}

type binding[T any] struct {
	name string
	key  string
	reg  *registry.Registry[T]
	load LoadFunc[T]
}

// Bind adapts a typed registry and its load function into a Collection.
//
// Precondition: name and key must be non-empty; reg and load must be non-nil.
func Bind[T any](name, key string, reg *registry.Registry[T], load LoadFunc[T]) Collection {
	if reg == nil || load == nil {
		panic("merge.Bind: precondition violated: registry and load must be non-nil")
	}
	return &binding[T]{name: name, key: key, reg: reg, load: load}
}

func (b *binding[T]) Name() string        { return b.name }
func (b *binding[T]) NaturalKey() string  { return b.key }
func (b *binding[T]) View() registry.View { return b.reg }

func (b *binding[T]) Apply(ctx *Context, d registry.Directive, chain []*yaml.Node) (Applied, error) {
	_, rule, outcome, err := b.reg.Apply(d)
	res := Applied{Outcome: outcome}
	if err != nil || !outcome.Populates() {
		return res, err
	}
	reserved := directiveKeys(b.key)
	recognized := make(map[string]bool)
	for _, n := range chain {
		f := newFields(ctx, b.name, d.Name, n)
		if err := b.load(rule, f); err != nil {
			return res, err
		}
		if err := f.Err(); err != nil {
			return res, err
		}
		for _, k := range f.Recognized() {
			recognized[k] = true
		}
		res.Warnings = append(res.Warnings, f.warnings...)
		for _, p := range f.unknown(reserved) {
			res.Warnings = append(res.Warnings, Warning{Node: p.keyN, Err: fmt.Errorf("unknown field %q", p.key)})
		}
	}
	for k := range recognized {
		res.Recognized = append(res.Recognized, k)
	}
	slices.Sort(res.Recognized)
	return res, nil
}
