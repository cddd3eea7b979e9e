package merge

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// Context carries the per-document state every field decode needs. It is
// passed explicitly instead of being read from a global "current mod".
type Context struct {
	Mod      *mod.Descriptor
	File     string
	Resolver *namespace.Resolver
}

// Fields reads the fields of one rule mapping node into a rule. The first
// decode error sticks: later calls become no-ops and Err reports it, so a
// kind's load function can read every field and check once at the end.
type Fields struct {
	ctx    *Context
	kind   string
	rule   string
	node   *yaml.Node
	values map[string]*yaml.Node
	asked  map[string]bool
	err    error

	warnings []Warning
}

func newFields(ctx *Context, kind, rule string, n *yaml.Node) *Fields {
	f := &Fields{
		ctx:    ctx,
		kind:   kind,
		rule:   rule,
		node:   n,
		values: make(map[string]*yaml.Node),
		asked:  make(map[string]bool),
	}
	for _, p := range pairs(n) {
		if _, dup := f.values[p.key]; dup {
			f.warn(p.keyN, "duplicate field %q, the last value is used", p.key)
		}
		f.values[p.key] = p.value
	}
	return f
}

func (f *Fields) warn(n *yaml.Node, format string, args ...any) {
	f.warnings = append(f.warnings, Warning{Node: n, Err: fmt.Errorf(format, args...)})
}

// Rule returns the name of the rule being loaded.
func (f *Fields) Rule() string { return f.rule }

// Mod returns the mod whose document is being loaded.
func (f *Fields) Mod() *mod.Descriptor { return f.ctx.Mod }

// Err returns the first error encountered.
func (f *Fields) Err() error { return f.err }

// Has reports whether key is present on the node. It also marks key as recognized.
func (f *Fields) Has(key string) bool {
	f.asked[key] = true
	_, ok := f.values[key]
	return ok
}

// take marks key recognized and returns its value node when it is present
// and no earlier error occurred.
func (f *Fields) take(key string) (*yaml.Node, bool) {
	f.asked[key] = true
	if f.err != nil {
		return nil, false
	}
	n, ok := f.values[key]
	return n, ok
}

func (f *Fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *Fields) structural(n *yaml.Node, format string, args ...any) {
	f.fail(ruleerr.Structuralf(position(f.ctx.File, n), "%s %q: "+format, append([]any{f.kind, f.rule}, args...)...))
}

// Recognized returns every key the load function asked for, sorted.
func (f *Fields) Recognized() []string {
	out := make([]string, 0, len(f.asked))
	for k := range f.asked {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// unknown returns the keys present on the node that were never asked for,
// excluding keys the engine itself consumes.
func (f *Fields) unknown(reserved map[string]bool) []pair {
	var out []pair
	for _, p := range pairs(f.node) {
		if !f.asked[p.key] && !reserved[p.key] {
			out = append(out, p)
		}
	}
	return out
}

// Scalar decodes the scalar under key into dst. Missing keys leave dst untouched.
func Scalar[V any](f *Fields, key string, dst *V) {
	n, ok := f.take(key)
	if !ok {
		return
	}
	if n.Kind != yaml.ScalarNode {
		f.structural(n, "field %q: expected scalar, got %s", key, kindName(n))
		return
	}
	if classifyTag(n) != tagPlain {
		f.structural(n, "field %q: tag %s is not allowed on a scalar", key, n.Tag)
		return
	}
	var v V
	if err := n.Decode(&v); err != nil {
		f.structural(n, "field %q: %v", key, err)
		return
	}
	*dst = v
}

// String decodes a string field.
func (f *Fields) String(key string, dst *string) { Scalar(f, key, dst) }

// Int decodes an int field.
func (f *Fields) Int(key string, dst *int) { Scalar(f, key, dst) }

// Float decodes a float64 field.
func (f *Fields) Float(key string, dst *float64) { Scalar(f, key, dst) }

// Bool decodes a bool field.
func (f *Fields) Bool(key string, dst *bool) { Scalar(f, key, dst) }

// List applies the (possibly tagged) sequence under key to dst. parse
// converts one element node.
func List[T comparable](f *Fields, key string, dst *[]T, parse func(*yaml.Node) (T, error)) {
	n, ok := f.take(key)
	if !ok {
		return
	}
	edit, err := parseListEdit(f.ctx.File, n, parse)
	if err != nil {
		f.fail(err)
		return
	}
	*dst = edit.Apply(*dst)
}

// Strings applies a string list field.
func (f *Fields) Strings(key string, dst *[]string) {
	List(f, key, dst, decodeScalar[string])
}

// Ints applies an int list field.
func (f *Fields) Ints(key string, dst *[]int) {
	List(f, key, dst, decodeScalar[int])
}

// Map applies the (possibly tagged) mapping under key to dst.
func Map[V any](f *Fields, key string, dst *map[string]V) {
	n, ok := f.take(key)
	if !ok {
		return
	}
	edit, err := parseMapEdit[V](f.ctx.File, n)
	if err != nil {
		f.fail(err)
		return
	}
	*dst = edit.Apply(*dst)
}

// IntMap applies a string-to-int map field.
func (f *Fields) IntMap(key string, dst *map[string]int) { Map(f, key, dst) }

// FloatMap applies a string-to-float map field.
func (f *Fields) FloatMap(key string, dst *map[string]float64) { Map(f, key, dst) }

// Ref reads a single by-name reference. A null value clears the reference.
func Ref[T any](f *Fields, key string, dst *registry.Ref[T]) {
	n, ok := f.take(key)
	if !ok {
		return
	}
	if isNull(n) {
		*dst = registry.NewRef[T]("")
		return
	}
	name, err := decodeScalar[string](n)
	if err != nil {
		f.fail(ruleerr.Structuralf(position(f.ctx.File, n), "%s %q: field %q: %v", f.kind, f.rule, key, err))
		return
	}
	*dst = registry.NewRef[T](name)
}

// Refs applies a (possibly tagged) list of by-name references.
func Refs[T any](f *Fields, key string, dst *[]registry.Ref[T]) {
	List(f, key, dst, func(n *yaml.Node) (registry.Ref[T], error) {
		name, err := decodeScalar[string](n)
		if err != nil {
			return registry.Ref[T]{}, err
		}
		return registry.NewRef[T](name), nil
	})
}

// Resource reads a legacy resource index declared by the current mod and
// stores the absolute index. Accepted forms are an integer, null (none), or
// {index: <int>, mod: <id|master|current>}.
func (f *Fields) Resource(key string, dst *int64, set namespace.ResourceSet) {
	n, ok := f.take(key)
	if !ok {
		return
	}
	owner := f.ctx.Mod.ID
	var logical int64
	switch {
	case isNull(n):
		*dst = namespace.None
		return
	case n.Kind == yaml.ScalarNode:
		v, err := decodeScalar[int64](n)
		if err != nil {
			f.structural(n, "field %q: %v", key, err)
			return
		}
		logical = v
	case n.Kind == yaml.MappingNode:
		idx := lookup(n, "index")
		if idx == nil {
			f.structural(n, "field %q: explicit resource reference needs an index", key)
			return
		}
		if isNull(idx) {
			*dst = namespace.None
			return
		}
		v, err := decodeScalar[int64](idx)
		if err != nil {
			f.structural(idx, "field %q: %v", key, err)
			return
		}
		logical = v
		for _, p := range pairs(n) {
			if p.key != "index" && p.key != "mod" {
				f.warn(p.keyN, "field %q: unknown key %q in resource reference", key, p.key)
			}
		}
		var name string
		if m := lookup(n, "mod"); m != nil {
			if name, err = decodeScalar[string](m); err != nil {
				f.structural(m, "field %q: %v", key, err)
				return
			}
		}
		if owner, err = f.ctx.Resolver.Owner(f.ctx.Mod.ID, name); err != nil {
			f.fail(f.namespaceErr(err))
			return
		}
	default:
		f.structural(n, "field %q: expected an index or {index, mod}, got %s", key, kindName(n))
		return
	}
	abs, err := f.ctx.Resolver.Resolve(owner, set, logical)
	if err != nil {
		f.fail(f.namespaceErr(err))
		return
	}
	*dst = abs
}

func (f *Fields) namespaceErr(err error) error {
	var ne *ruleerr.NamespaceError
	if errors.As(err, &ne) {
		cp := *ne
		cp.Rule = f.rule
		return &cp
	}
	return err
}

func decodeScalar[V any](n *yaml.Node) (V, error) {
	var v V
	n = deref(n)
	if n.Kind != yaml.ScalarNode {
		return v, fmt.Errorf("expected scalar, got %s", kindName(n))
	}
	if classifyTag(n) != tagPlain {
		return v, fmt.Errorf("tag %s is not allowed on a scalar", n.Tag)
	}
	err := n.Decode(&v)
	return v, err
}

func parseListEdit[T comparable](file string, n *yaml.Node, parse func(*yaml.Node) (T, error)) (ListEdit[T], error) {
	var edit ListEdit[T]
	switch classifyTag(n) {
	case tagAdd:
		edit.Op = EditAppend
	case tagRemove:
		edit.Op = EditRemove
	case tagPlain:
		edit.Op = EditReplace
	default:
		return edit, ruleerr.Structuralf(position(file, n), "tag %s is not allowed on a list", n.Tag)
	}
	if isNull(n) {
		return edit, nil
	}
	if n.Kind == yaml.ScalarNode {
		// A bare scalar is shorthand for a one-element list.
		v, err := parse(n)
		if err != nil {
			return edit, ruleerr.Structuralf(position(file, n), "list element: %v", err)
		}
		edit.Values = []T{v}
		return edit, nil
	}
	if n.Kind != yaml.SequenceNode {
		return edit, ruleerr.Structuralf(position(file, n), "expected a list, got %s", kindName(n))
	}
	edit.Values = make([]T, 0, len(n.Content))
	for _, item := range n.Content {
		v, err := parse(deref(item))
		if err != nil {
			return edit, ruleerr.Structuralf(position(file, item), "list element: %v", err)
		}
		edit.Values = append(edit.Values, v)
	}
	return edit, nil
}

func parseMapEdit[V any](file string, n *yaml.Node) (MapEdit[V], error) {
	var edit MapEdit[V]
	switch classifyTag(n) {
	case tagAdd:
		edit.Op = EditAppend
	case tagRemove:
		edit.Op = EditRemove
	case tagPlain:
		edit.Op = EditReplace
	default:
		return edit, ruleerr.Structuralf(position(file, n), "tag %s is not allowed on a map", n.Tag)
	}
	if isNull(n) {
		return edit, nil
	}
	if edit.Op == EditRemove && n.Kind == yaml.SequenceNode {
		for _, item := range n.Content {
			k, err := decodeScalar[string](item)
			if err != nil {
				return edit, ruleerr.Structuralf(position(file, item), "map key: %v", err)
			}
			edit.Keys = append(edit.Keys, k)
		}
		return edit, nil
	}
	if n.Kind != yaml.MappingNode {
		return edit, ruleerr.Structuralf(position(file, n), "expected a map, got %s", kindName(n))
	}
	ps := pairs(n)
	if edit.Op == EditRemove {
		for _, p := range ps {
			edit.Keys = append(edit.Keys, p.key)
		}
		return edit, nil
	}
	edit.Entries = make(map[string]V, len(ps))
	for _, p := range ps {
		v, err := decodeScalarOrNode[V](p.value)
		if err != nil {
			return edit, ruleerr.Structuralf(position(file, p.value), "map entry %q: %v", p.key, err)
		}
		edit.Entries[p.key] = v
	}
	return edit, nil
}

// decodeScalarOrNode decodes a map value, which may itself be structured.
func decodeScalarOrNode[V any](n *yaml.Node) (V, error) {
	var v V
	if classifyTag(n) != tagPlain {
		return v, fmt.Errorf("tag %s is not allowed on a map value", n.Tag)
	}
	err := n.Decode(&v)
	return v, err
}
