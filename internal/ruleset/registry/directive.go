package registry

import (
	"errors"
	"fmt"
)

// Op is the verb of a merge directive.
type Op int

const (
	// OpUpsert is the natural-key convention: override if present, else create.
	OpUpsert Op = iota
	OpCreate
	OpOverride
	OpUpdate
	OpDelete
	OpIgnore
)

// String returns the document keyword for op.
func (op Op) String() string {
	switch op {
	case OpUpsert:
		return "upsert"
	case OpCreate:
		return "new"
	case OpOverride:
		return "override"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpIgnore:
		return "ignore"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Directive is one merge instruction addressed at a named rule.
type Directive struct {
	Op   Op
	Name string
}

// Outcome describes what Apply did to the registry.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeExisting
	OutcomeDeleted
	// OutcomeSkipped means an update targeted a missing rule and was dropped.
	OutcomeSkipped
)

// Apply executes d against the registry. When the directive yields a rule to
// populate (create, override, update, upsert) the handle and rule are returned
// with ok set; fields the caller does not touch keep their current values.
//
// Errors: Create on an existing name wraps ErrDuplicate, Override on a missing
// name wraps ErrNotFound. Update on a missing name is not an error and reports
// OutcomeSkipped. Delete and Ignore never fail on an unfrozen registry.
func (r *Registry[T]) Apply(d Directive) (ID[T], *T, Outcome, error) {
	if r.frozen {
		return ID[T]{}, nil, OutcomeNone, ErrFrozen
	}
	switch d.Op {
	case OpCreate:
		id, rule, err := r.Create(d.Name)
		if err != nil {
			return ID[T]{}, nil, OutcomeNone, err
		}
		return id, rule, OutcomeCreated, nil
	case OpUpsert:
		if id, ok := r.byName[d.Name]; ok {
			return id, r.Get(id), OutcomeExisting, nil
		}
		id, rule, err := r.Create(d.Name)
		if err != nil {
			return ID[T]{}, nil, OutcomeNone, err
		}
		return id, rule, OutcomeCreated, nil
	case OpOverride, OpUpdate:
		id, ok := r.byName[d.Name]
		if ok {
			return id, r.Get(id), OutcomeExisting, nil
		}
		if d.Op == OpUpdate {
			return ID[T]{}, nil, OutcomeSkipped, nil
		}
		return ID[T]{}, nil, OutcomeNone, fmt.Errorf("override %s %q: %w", r.kind, d.Name, ErrNotFound)
	case OpDelete:
		removed, err := r.Remove(d.Name)
		if err != nil {
			return ID[T]{}, nil, OutcomeNone, err
		}
		if removed {
			return ID[T]{}, nil, OutcomeDeleted, nil
		}
		return ID[T]{}, nil, OutcomeNone, nil
	case OpIgnore:
		return ID[T]{}, nil, OutcomeNone, nil
	}
	return ID[T]{}, nil, OutcomeNone, errors.New("registry: unknown directive " + d.Op.String())
}

// Populates reports whether o hands back a rule for field loading.
func (o Outcome) Populates() bool {
	return o == OutcomeCreated || o == OutcomeExisting
}
