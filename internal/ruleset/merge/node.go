package merge

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// Node tags understood by the engine.
const (
	TagAdd    = "!add"
	TagRemove = "!remove"
	TagInfo   = "!info"
)

// nodeTag classifies the tag on a node.
type nodeTag int

const (
	tagPlain nodeTag = iota
	tagAdd
	tagRemove
	tagInfo
	tagUnknown
)

func classifyTag(n *yaml.Node) nodeTag {
	switch t := n.Tag; {
	case t == "", t == "!", strings.HasPrefix(t, "!!"), strings.HasPrefix(t, "tag:yaml.org,2002:"):
		return tagPlain
	case t == TagAdd:
		return tagAdd
	case t == TagRemove:
		return tagRemove
	case t == TagInfo:
		return tagInfo
	}
	return tagUnknown
}

// deref follows alias nodes to their anchored target.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// isNull reports whether n is absent or an explicit YAML null.
func isNull(n *yaml.Node) bool {
	n = deref(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func kindName(n *yaml.Node) string {
	switch deref(n).Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	}
	return "unknown"
}

func position(file string, n *yaml.Node) ruleerr.Position {
	if n == nil {
		return ruleerr.Position{File: file}
	}
	return ruleerr.Position{File: file, Line: n.Line, Column: n.Column}
}

// pair is one key/value entry of a mapping node.
type pair struct {
	key   string
	keyN  *yaml.Node
	value *yaml.Node
}

// pairs returns the entries of mapping node n, aliases resolved on values.
func pairs(n *yaml.Node) []pair {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := deref(n.Content[i])
		out = append(out, pair{key: k.Value, keyN: k, value: deref(n.Content[i+1])})
	}
	return out
}

// lookup returns the value under key in mapping n.
func lookup(n *yaml.Node, key string) *yaml.Node {
	for _, p := range pairs(n) {
		if p.key == key {
			return p.value
		}
	}
	return nil
}
