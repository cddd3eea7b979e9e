package merge

import "fmt"

// EditOp selects how a tagged list or map value combines with the current one.
type EditOp int

const (
	// EditReplace discards the current value. Untagged values replace.
	EditReplace EditOp = iota
	// EditAppend is selected by the !add tag.
	EditAppend
	// EditRemove is selected by the !remove tag.
	EditRemove
)

// String returns the document spelling of op.
func (op EditOp) String() string {
	switch op {
	case EditReplace:
		return "replace"
	case EditAppend:
		return TagAdd
	case EditRemove:
		return TagRemove
	}
	return fmt.Sprintf("editop(%d)", int(op))
}

// ListEdit is an edit of an ordered list field.
type ListEdit[T comparable] struct {
	Op     EditOp
	Values []T
}

// Apply returns the edited copy of cur; cur itself is never modified.
//
// Postcondition:
//   - Replace returns Values verbatim.
//   - Append keeps cur's order and appends each value not already present,
//     in payload order.
//   - Remove drops every element equal to any payload value, keeping the
//     order of the rest.
func (e ListEdit[T]) Apply(cur []T) []T {
	switch e.Op {
	case EditAppend:
		out := make([]T, len(cur), len(cur)+len(e.Values))
		copy(out, cur)
		present := make(map[T]bool, len(out)+len(e.Values))
		for _, v := range out {
			present[v] = true
		}
		for _, v := range e.Values {
			if present[v] {
				continue
			}
			present[v] = true
			out = append(out, v)
		}
		return out
	case EditRemove:
		drop := make(map[T]bool, len(e.Values))
		for _, v := range e.Values {
			drop[v] = true
		}
		out := make([]T, 0, len(cur))
		for _, v := range cur {
			if !drop[v] {
				out = append(out, v)
			}
		}
		return out
	}
	out := make([]T, len(e.Values))
	copy(out, e.Values)
	return out
}

// MapEdit is an edit of a string-keyed map field.
type MapEdit[V any] struct {
	Op      EditOp
	Entries map[string]V
	// Keys lists the keys to delete for EditRemove.
	Keys []string
}

// Apply returns the edited copy of cur; cur itself is never modified.
//
// Postcondition:
//   - Replace returns a copy of Entries.
//   - Append inserts or overwrites every entry.
//   - Remove deletes every listed key; values in the payload are ignored.
func (e MapEdit[V]) Apply(cur map[string]V) map[string]V {
	switch e.Op {
	case EditAppend:
		out := make(map[string]V, len(cur)+len(e.Entries))
		for k, v := range cur {
			out[k] = v
		}
		for k, v := range e.Entries {
			out[k] = v
		}
		return out
	case EditRemove:
		out := make(map[string]V, len(cur))
		for k, v := range cur {
			out[k] = v
		}
		for _, k := range e.Keys {
			delete(out, k)
		}
		return out
	}
	out := make(map[string]V, len(e.Entries))
	for k, v := range e.Entries {
		out[k] = v
	}
	return out
}
