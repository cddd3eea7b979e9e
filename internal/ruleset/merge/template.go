package merge

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// MaxTemplateDepth bounds refNode delegation so that cycles terminate.
const MaxTemplateDepth = 64

// TemplatesKey is the top-level document key holding named refNode bodies.
const TemplatesKey = "templates"

// Templates stores named template nodes. Later definitions replace earlier ones.
type Templates struct {
	nodes map[string]*yaml.Node
}

// NewTemplates returns an empty store.
func NewTemplates() *Templates {
	return &Templates{nodes: make(map[string]*yaml.Node)}
}

// Define registers every entry of the templates mapping n.
func (t *Templates) Define(file string, n *yaml.Node) error {
	n = deref(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return ruleerr.Structuralf(position(file, n), "%s must be a mapping of name to node, got %s", TemplatesKey, kindName(n))
	}
	for _, p := range pairs(n) {
		if p.value.Kind != yaml.MappingNode {
			return ruleerr.Structuralf(position(file, p.value), "template %q must be a mapping, got %s", p.key, kindName(p.value))
		}
		t.nodes[p.key] = p.value
	}
	return nil
}

// Len returns the number of named templates.
func (t *Templates) Len() int { return len(t.nodes) }

// Chain expands the refNode delegation of n. The returned nodes are ordered
// outermost template first and n last, which is the order their fields
// must be applied in.
//
// Postcondition: Returns an error wrapping ruleerr.ErrTemplateDepth when
// more than MaxTemplateDepth delegations are needed.
func (t *Templates) Chain(file string, n *yaml.Node) ([]*yaml.Node, error) {
	chain := []*yaml.Node{deref(n)}
	cur := chain[0]
	for depth := 0; ; depth++ {
		ref := lookup(cur, KeyRefNode)
		if ref == nil {
			break
		}
		if depth >= MaxTemplateDepth {
			return nil, &ruleerr.StructuralError{
				Pos: position(file, n),
				Msg: fmt.Sprintf("%v: refNode chain is deeper than %d", ruleerr.ErrTemplateDepth, MaxTemplateDepth),
				Err: ruleerr.ErrTemplateDepth,
			}
		}
		next, err := t.target(file, ref)
		if err != nil {
			return nil, err
		}
		chain = append(chain, next)
		cur = next
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (t *Templates) target(file string, ref *yaml.Node) (*yaml.Node, error) {
	ref = deref(ref)
	switch ref.Kind {
	case yaml.MappingNode:
		return ref, nil
	case yaml.ScalarNode:
		if next, ok := t.nodes[ref.Value]; ok {
			return next, nil
		}
		return nil, ruleerr.Structuralf(position(file, ref), "refNode names unknown template %q", ref.Value)
	}
	return nil, ruleerr.Structuralf(position(file, ref), "refNode must be a mapping or a template name, got %s", kindName(ref))
}
