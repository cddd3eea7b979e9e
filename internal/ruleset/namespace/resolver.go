package namespace

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// None is the reserved "no resource" index. It passes through resolution.
const None int64 = -1

// Reserved owner names usable in an explicit {index, mod} reference.
const (
	OwnerMaster  = "master"
	OwnerCurrent = "current"
)

// ResourceSet describes one family of legacy-indexed resources.
type ResourceSet struct {
	Name string
	// SharedCount is the number of indices common to every mod.
	SharedCount int64
	// Multiplier scales a mod's offset for sets whose native granularity
	// differs from one element per logical index.
	Multiplier int64
}

// Stock resource sets referenced by the built-in rule kinds.
var (
	SetBigSprites   = ResourceSet{Name: "BIGOBS.PCK", SharedCount: 57, Multiplier: 1}
	SetFloorSprites = ResourceSet{Name: "FLOOROB.PCK", SharedCount: 73, Multiplier: 1}
	SetHandSprites  = ResourceSet{Name: "HANDOB.PCK", SharedCount: 128, Multiplier: 8}
	SetBattleSounds = ResourceSet{Name: "BATTLE.CAT", SharedCount: 55, Multiplier: 1}
	SetCraftSprites = ResourceSet{Name: "INTICON.PCK", SharedCount: 11, Multiplier: 1}
)

var (
	errNegative     = errors.New("index below the -1 sentinel")
	errOverBudget   = errors.New("index exceeds the mod's reserved space")
	errNoAllocation = errors.New("mod has no namespace allocation")
)

// Resolver maps mod-local resource indices to absolute indices.
//
// Precondition: the Table was fully allocated before the first Resolve call.
type Resolver struct {
	table *Table
}

// NewResolver returns a Resolver over t.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Table returns the underlying allocation table.
func (r *Resolver) Table() *Table { return r.table }

// Resolve translates logical, declared by modID, into an absolute index.
//
// Postcondition: -1 is returned unchanged; indices below set.SharedCount are
// returned unchanged; other indices are shifted by the mod's offset scaled by
// set.Multiplier. Returns a *ruleerr.NamespaceError for indices < -1, for an
// unallocated mod, or for an index outside the mod's budget.
func (r *Resolver) Resolve(modID string, set ResourceSet, logical int64) (int64, error) {
	switch {
	case logical == None:
		return None, nil
	case logical < None:
		return 0, &ruleerr.NamespaceError{ModID: modID, Set: set.Name, Err: fmt.Errorf("%w: %d", errNegative, logical)}
	case logical < set.SharedCount:
		return logical, nil
	}
	alloc, ok := r.table.Lookup(modID)
	if !ok {
		return 0, &ruleerr.NamespaceError{ModID: modID, Set: set.Name, Err: errNoAllocation}
	}
	mult := set.Multiplier
	if mult < 1 {
		mult = 1
	}
	if logical >= alloc.Budget*mult {
		return 0, &ruleerr.NamespaceError{
			ModID: modID,
			Set:   set.Name,
			Err:   fmt.Errorf("%w: %d >= %d", errOverBudget, logical, alloc.Budget*mult),
		}
	}
	return logical + alloc.Offset*mult, nil
}

// Owner resolves the owner named in an explicit reference written by current.
// "master" and "current" are accepted as well as any allocated mod id.
//
// Postcondition: Returns the owning mod id, or a *ruleerr.NamespaceError
// wrapping ruleerr.ErrUnknownMod.
func (r *Resolver) Owner(current, owner string) (string, error) {
	switch owner {
	case "", OwnerCurrent:
		return current, nil
	case OwnerMaster:
		if r.table.Len() == 0 {
			return "", &ruleerr.NamespaceError{ModID: current, Err: fmt.Errorf("%w: no master allocated", ruleerr.ErrUnknownMod)}
		}
		return r.table.Master().Mod.ID, nil
	}
	if _, ok := r.table.Lookup(owner); !ok {
		return "", &ruleerr.NamespaceError{
			ModID: current,
			Err:   fmt.Errorf("%w: %q is referenced but not loaded", ruleerr.ErrUnknownMod, owner),
		}
	}
	return owner, nil
}
