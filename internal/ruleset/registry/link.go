package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// LinkState is the lifecycle of a link pass.
type LinkState int

const (
	Unlinked LinkState = iota
	Linking
	Linked
	Failed
)

// String returns the state name.
func (s LinkState) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case Linking:
		return "linking"
	case Linked:
		return "linked"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("linkstate(%d)", int(s))
}

// DefaultMaxLinkErrors bounds the failures collected before a pass aborts.
const DefaultMaxLinkErrors = 30

// Linker drives one cross-link pass. The generic Link* functions record
// failures on it instead of returning them, so a single pass surfaces every
// broken reference up to the configured bound.
type Linker struct {
	state    LinkState
	max      int
	failures []ruleerr.LinkFailure
	aborted  bool

	kind string
	rule string
}

// NewLinker returns an Unlinked Linker collecting at most max failures.
// max <= 0 uses DefaultMaxLinkErrors.
func NewLinker(max int) *Linker {
	if max <= 0 {
		max = DefaultMaxLinkErrors
	}
	return &Linker{max: max}
}

// State returns the current lifecycle state.
func (l *Linker) State() LinkState { return l.state }

// Begin moves an Unlinked Linker to Linking.
//
// Precondition: State() == Unlinked.
func (l *Linker) Begin() error {
	if l.state != Unlinked {
		return fmt.Errorf("link pass cannot begin from state %s", l.state)
	}
	l.state = Linking
	return nil
}

// Full reports whether the failure bound was reached. Callers walking the
// rule graph stop early once it is.
func (l *Linker) Full() bool { return l.aborted }

// Owner sets the rule that subsequent Link calls are attributed to.
func (l *Linker) Owner(kind, rule string) {
	l.kind, l.rule = kind, rule
}

// Failures returns the failures recorded so far.
func (l *Linker) Failures() []ruleerr.LinkFailure {
	out := make([]ruleerr.LinkFailure, len(l.failures))
	copy(out, l.failures)
	return out
}

// Finish ends the pass: Linked when no failure was recorded, Failed otherwise.
//
// Precondition: State() == Linking.
// Postcondition: Returns a *ruleerr.LinkReport iff the pass failed.
func (l *Linker) Finish() error {
	if l.state != Linking {
		return fmt.Errorf("link pass cannot finish from state %s", l.state)
	}
	if len(l.failures) == 0 {
		l.state = Linked
		return nil
	}
	l.state = Failed
	return &ruleerr.LinkReport{Failures: l.Failures(), Aborted: l.aborted}
}

func (l *Linker) fail(field, target, name string) {
	if l.aborted {
		return
	}
	l.failures = append(l.failures, ruleerr.LinkFailure{
		Kind:   l.kind,
		Rule:   l.rule,
		Field:  field,
		Target: target,
		Name:   name,
	})
	if len(l.failures) >= l.max {
		l.aborted = true
	}
}

func (l *Linker) active() bool {
	return l.state == Linking && !l.aborted
}

// Link resolves a required reference. An empty or missing name is a failure.
func Link[T any](l *Linker, field string, ref *Ref[T], reg *Registry[T]) {
	if !l.active() {
		return
	}
	id, ok := reg.Lookup(ref.name)
	if !ok {
		l.fail(field, reg.Kind(), ref.name)
		return
	}
	ref.id, ref.state = id, refResolved
}

// LinkOptional resolves a reference that may be left empty. An empty name or
// NoneName marks the reference absent; any other unknown name is a failure.
func LinkOptional[T any](l *Linker, field string, ref *Ref[T], reg *Registry[T]) {
	if !l.active() {
		return
	}
	if ref.name == "" || ref.name == NoneName {
		ref.id, ref.state = ID[T]{}, refAbsent
		return
	}
	Link(l, field, ref, reg)
}

// LinkList resolves every reference in refs as required.
func LinkList[T any](l *Linker, field string, refs []Ref[T], reg *Registry[T]) {
	for i := range refs {
		Link(l, field, &refs[i], reg)
	}
}

// LinkKeys resolves the keys of a name-keyed map and returns the same values
// keyed by handle. Unknown keys are recorded as failures and omitted.
func LinkKeys[T, V any](l *Linker, field string, m map[string]V, reg *Registry[T]) map[ID[T]]V {
	out := make(map[ID[T]]V, len(m))
	if !l.active() {
		return out
	}
	for _, name := range sortedKeys(m) {
		id, ok := reg.Lookup(name)
		if !ok {
			l.fail(field, reg.Kind(), name)
			continue
		}
		out[id] = m[name]
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
