package merge

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/registry"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// Reserved keys of a rule node.
const (
	KeyNew      = "new"
	KeyOverride = "override"
	KeyUpdate   = "update"
	KeyDelete   = "delete"
	KeyIgnore   = "ignore"
	KeyRefNode  = "refNode"
)

var directiveOps = map[string]registry.Op{
	KeyNew:      registry.OpCreate,
	KeyOverride: registry.OpOverride,
	KeyUpdate:   registry.OpUpdate,
	KeyDelete:   registry.OpDelete,
	KeyIgnore:   registry.OpIgnore,
}

// directiveKeys returns the keys the engine consumes itself on a node of a
// collection whose natural key is naturalKey.
func directiveKeys(naturalKey string) map[string]bool {
	keys := map[string]bool{naturalKey: true, KeyRefNode: true}
	for k := range directiveOps {
		keys[k] = true
	}
	return keys
}

// ParseDirective finds the single directive of rule node n. The natural key
// implies create-or-override; each reserved key selects its own verb and
// names the rule. A node with no directive, or more than one, is malformed.
func ParseDirective(file string, n *yaml.Node, naturalKey string) (registry.Directive, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return registry.Directive{}, ruleerr.Structuralf(position(file, n), "rule node must be a mapping, got %s", kindName(n))
	}
	var (
		found []string
		d     registry.Directive
		at    *yaml.Node
	)
	for _, p := range pairs(n) {
		op, reserved := directiveOps[p.key]
		switch {
		case p.key == naturalKey:
			op = registry.OpUpsert
		case !reserved:
			continue
		}
		found = append(found, p.key)
		d = registry.Directive{Op: op}
		at = p.value
		if op == registry.OpIgnore && isNull(p.value) {
			continue
		}
		name, err := decodeScalar[string](p.value)
		if err != nil {
			return registry.Directive{}, ruleerr.Structuralf(position(file, p.value), "directive %q: %v", p.key, err)
		}
		d.Name = strings.TrimSpace(name)
	}
	switch len(found) {
	case 0:
		return registry.Directive{}, ruleerr.Structuralf(position(file, n),
			"rule node has no %q or directive key (new, override, update, delete, ignore)", naturalKey)
	case 1:
	default:
		return registry.Directive{}, ruleerr.Structuralf(position(file, n),
			"rule node has conflicting directive keys: %s", strings.Join(found, ", "))
	}
	if d.Op != registry.OpIgnore && d.Name == "" {
		return registry.Directive{}, ruleerr.Structuralf(position(file, at), "directive %q needs a rule name", found[0])
	}
	return d, nil
}
