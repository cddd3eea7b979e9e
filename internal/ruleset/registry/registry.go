// Package registry provides the named rule store used by the merge engine,
// the directive dispatch over it, and the cross-link pass that turns by-name
// references into registry handles.
package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned by Create when the name is already registered.
	ErrDuplicate = errors.New("rule already exists")
	// ErrNotFound is returned by Override and Update when the name is not registered.
	ErrNotFound = errors.New("rule does not exist")
	// ErrFrozen is returned by any mutation after the registry was frozen.
	ErrFrozen = errors.New("registry is frozen")
)

// ID is a handle to a rule stored in a Registry[T]. The zero ID is invalid.
type ID[T any] struct {
	slot int32
}

// Valid reports whether id refers to a slot.
func (id ID[T]) Valid() bool { return id.slot > 0 }

// Index returns the zero-based arena index, or -1 for the zero ID.
func (id ID[T]) Index() int { return int(id.slot) - 1 }

type entry[T any] struct {
	name string
	rule *T
}

// Registry stores rules of one kind by name and remembers the order in which
// names were inserted. Rules live in an arena; deleting a rule clears its slot
// and never reuses it, so IDs handed out earlier never alias a later rule.
//
// Invariant: every name in order is a key of byName exactly once and vice versa.
type Registry[T any] struct {
	kind    string
	factory func(name string) *T
	byName  map[string]ID[T]
	order   []string
	arena   []entry[T]
	frozen  bool
}

// New returns an empty Registry for kind. factory builds a default rule for a
// freshly created name.
//
// Precondition: kind must be non-empty; factory must be non-nil.
// Postcondition: Returns a non-nil, empty, unfrozen registry.
func New[T any](kind string, factory func(name string) *T) *Registry[T] {
	if factory == nil {
		panic("registry.New: precondition violated: factory must be non-nil")
	}
	return &Registry[T]{
		kind:    kind,
		factory: factory,
		byName:  make(map[string]ID[T]),
	}
}

// Kind returns the entity kind this registry stores.
func (r *Registry[T]) Kind() string { return r.kind }

// Len returns the number of live rules.
func (r *Registry[T]) Len() int { return len(r.order) }

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Lookup returns the handle registered under name.
func (r *Registry[T]) Lookup(name string) (ID[T], bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Get dereferences id. Returns nil for an invalid or deleted handle.
func (r *Registry[T]) Get(id ID[T]) *T {
	i := id.Index()
	if i < 0 || i >= len(r.arena) {
		return nil
	}
	return r.arena[i].rule
}

// NameOf returns the name id was registered under.
func (r *Registry[T]) NameOf(id ID[T]) string {
	i := id.Index()
	if i < 0 || i >= len(r.arena) {
		return ""
	}
	return r.arena[i].name
}

// Rule returns the rule registered under name.
func (r *Registry[T]) Rule(name string) (*T, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.Get(id), true
}

// Names returns a copy of the registered names in insertion order.
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every rule in insertion order, stopping at the first error.
func (r *Registry[T]) Each(fn func(name string, rule *T) error) error {
	for _, name := range r.order {
		if err := fn(name, r.Get(r.byName[name])); err != nil {
			return err
		}
	}
	return nil
}

// Create registers a new rule built by the factory.
//
// Postcondition: On success name is the last entry of Names and Lookup(name)
// returns the new handle. Returns ErrDuplicate if name exists.
func (r *Registry[T]) Create(name string) (ID[T], *T, error) {
	if r.frozen {
		return ID[T]{}, nil, ErrFrozen
	}
	if _, exists := r.byName[name]; exists {
		return ID[T]{}, nil, fmt.Errorf("%s %q: %w", r.kind, name, ErrDuplicate)
	}
	rule := r.factory(name)
	r.arena = append(r.arena, entry[T]{name: name, rule: rule})
	id := ID[T]{slot: int32(len(r.arena))}
	r.byName[name] = id
	r.order = append(r.order, name)
	return id, rule, nil
}

// Remove deletes name from the registry. Removing an absent name is a no-op.
//
// Postcondition: Has(name) is false. Returns true if a rule was removed.
func (r *Registry[T]) Remove(name string) (bool, error) {
	if r.frozen {
		return false, ErrFrozen
	}
	id, ok := r.byName[name]
	if !ok {
		return false, nil
	}
	delete(r.byName, name)
	r.arena[id.Index()].rule = nil
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Freeze makes the registry read-only. Further Create and Remove calls fail.
func (r *Registry[T]) Freeze() { r.frozen = true }

// Frozen reports whether Freeze was called.
func (r *Registry[T]) Frozen() bool { return r.frozen }

// CheckInvariant verifies that the name map and the order index agree.
//
// Postcondition: Returns nil iff every name appears exactly once in both.
func (r *Registry[T]) CheckInvariant() error {
	if len(r.order) != len(r.byName) {
		return fmt.Errorf("%s registry: %d ordered names but %d mapped names", r.kind, len(r.order), len(r.byName))
	}
	seen := make(map[string]bool, len(r.order))
	for _, name := range r.order {
		if seen[name] {
			return fmt.Errorf("%s registry: name %q appears twice in insertion order", r.kind, name)
		}
		seen[name] = true
		id, ok := r.byName[name]
		if !ok {
			return fmt.Errorf("%s registry: ordered name %q missing from name map", r.kind, name)
		}
		if r.Get(id) == nil {
			return fmt.Errorf("%s registry: name %q maps to an empty slot", r.kind, name)
		}
	}
	return nil
}

// View is the kind-erased, read-only face of a registry, used by consumers
// that address rules by kind name rather than Go type.
type View interface {
	Kind() string
	Len() int
	Has(name string) bool
	Names() []string
}

var _ View = (*Registry[struct{}])(nil)
