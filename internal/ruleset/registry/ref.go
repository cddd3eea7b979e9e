package registry

// NoneName is the sentinel a document uses to mark an optional reference as
// intentionally empty.
const NoneName = "STR_NONE"

type refState uint8

const (
	refUnresolved refState = iota
	refResolved
	refAbsent
)

// Ref is a by-name pointer to a rule of kind T. A Ref starts unresolved when
// parsed from a document and is resolved only by the link pass in this
// package. Refs compare equal by name while unresolved, which is what list
// edits rely on during the merge phase.
type Ref[T any] struct {
	name  string
	id    ID[T]
	state refState
}

// NewRef returns an unresolved reference to name.
func NewRef[T any](name string) Ref[T] {
	return Ref[T]{name: name}
}

// RefsOf builds unresolved references for names, preserving order.
func RefsOf[T any](names ...string) []Ref[T] {
	out := make([]Ref[T], len(names))
	for i, n := range names {
		out[i] = NewRef[T](n)
	}
	return out
}

// Name returns the referenced rule name as written in the document.
func (r Ref[T]) Name() string { return r.name }

// IsZero reports whether no name was ever assigned.
func (r Ref[T]) IsZero() bool { return r.name == "" && r.state == refUnresolved }

// Resolved reports whether the link pass bound r to a handle.
func (r Ref[T]) Resolved() bool { return r.state == refResolved }

// Absent reports whether r is an optional reference that was left empty.
func (r Ref[T]) Absent() bool { return r.state == refAbsent }

// ID returns the bound handle, if any.
func (r Ref[T]) ID() (ID[T], bool) {
	return r.id, r.state == refResolved
}

// Names extracts the names of refs in order.
func Names[T any](refs []Ref[T]) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.name
	}
	return out
}
