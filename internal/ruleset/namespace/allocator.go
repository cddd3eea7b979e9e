// Package namespace assigns every mod a disjoint range of legacy resource
// indices and translates mod-local indices into absolute runtime indices.
package namespace

import (
	"fmt"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// Defaults for the allocator limits.
const (
	DefaultUnitSize         = 1000
	DefaultReservedSpaceMin = 1
	DefaultReservedSpaceMax = 100
)

// Limits bound the namespace a single mod may reserve.
type Limits struct {
	// UnitSize is the number of indices in one unit of reservedSpace.
	UnitSize int64
	Min      int
	Max      int
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{UnitSize: DefaultUnitSize, Min: DefaultReservedSpaceMin, Max: DefaultReservedSpaceMax}
}

// Clamp bounds reserved to [l.Min, l.Max].
func (l Limits) Clamp(reserved int) int {
	return max(l.Min, min(reserved, l.Max))
}

// Allocation is the index range owned by one mod.
type Allocation struct {
	Mod    *mod.Descriptor
	Offset int64
	Budget int64
	// Order is the mod's position in the load order; the master is 0.
	Order int
}

// End returns the first index past the allocation.
func (a Allocation) End() int64 { return a.Offset + a.Budget }

// Table is the immutable result of a sizing pass.
type Table struct {
	order []Allocation
	byID  map[string]int
}

// Allocate sizes every mod in load order. The first mod starts at offset 0
// and each following mod starts where the previous one ends.
//
// Precondition: mods is in load order with the master first.
// Postcondition: Returns a table with non-overlapping, increasing offsets, or
// a *ruleerr.NamespaceError wrapping ruleerr.ErrDuplicateMod.
func Allocate(mods []*mod.Descriptor, limits Limits) (*Table, error) {
	if limits.UnitSize <= 0 {
		return nil, fmt.Errorf("namespace unit size must be positive, got %d", limits.UnitSize)
	}
	if limits.Min < 1 || limits.Max < limits.Min {
		return nil, fmt.Errorf("namespace reserved space range [%d, %d] is invalid", limits.Min, limits.Max)
	}
	t := &Table{
		order: make([]Allocation, 0, len(mods)),
		byID:  make(map[string]int, len(mods)),
	}
	var next int64
	for i, d := range mods {
		if _, dup := t.byID[d.ID]; dup {
			return nil, &ruleerr.NamespaceError{
				ModID: d.ID,
				Err:   fmt.Errorf("%w: %q is declared by more than one mod", ruleerr.ErrDuplicateMod, d.ID),
			}
		}
		budget := int64(limits.Clamp(d.ReservedSpace)) * limits.UnitSize
		t.byID[d.ID] = i
		t.order = append(t.order, Allocation{Mod: d, Offset: next, Budget: budget, Order: i})
		next += budget
	}
	return t, nil
}

// Len returns the number of allocated mods.
func (t *Table) Len() int { return len(t.order) }

// Lookup returns the allocation for modID.
func (t *Table) Lookup(modID string) (Allocation, bool) {
	i, ok := t.byID[modID]
	if !ok {
		return Allocation{}, false
	}
	return t.order[i], true
}

// Master returns the first allocation.
//
// Precondition: Len() > 0.
func (t *Table) Master() Allocation { return t.order[0] }

// Mods returns the allocated descriptors in load order.
func (t *Table) Mods() []*mod.Descriptor {
	out := make([]*mod.Descriptor, len(t.order))
	for i, a := range t.order {
		out[i] = a.Mod
	}
	return out
}

// Allocations returns a copy of every allocation in load order.
func (t *Table) Allocations() []Allocation {
	out := make([]Allocation, len(t.order))
	copy(out, t.order)
	return out
}
