package adapter

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvtree/internal/textpos"
)

// maxAliasHops bounds alias-to-alias chains.
const maxAliasHops = 64

// yamlValue adapts a yaml.v3 node. Aliases are followed, so an alias to an
// ancestor shares the ancestor's identity.
type yamlValue struct {
	n *yaml.Node
	// key is the mapping key the value belongs to; positions start there.
	key *yaml.Node
}

func newYAMLValue(n, key *yaml.Node) yamlValue {
	return yamlValue{n: resolveYAML(n), key: key}
}

func resolveYAML(n *yaml.Node) *yaml.Node {
	for hops := 0; n != nil && hops < maxAliasHops; hops++ {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func (y yamlValue) Representation() Representation {
	switch kindOf(y.n) {
	case yaml.MappingNode:
		return RepKeyedContainer
	case yaml.SequenceNode:
		return RepOrderedContainer
	default:
		return RepScalar
	}
}

func kindOf(n *yaml.Node) yaml.Kind {
	if n == nil {
		return 0
	}
	return n.Kind
}

func (y yamlValue) Describe() Description {
	if y.n == nil {
		return Description{Kind: KindNull, Display: "null", TypeName: "null", Position: y.position()}
	}
	d := Description{TypeName: strings.TrimPrefix(y.n.ShortTag(), "!!"), Position: y.position()}
	switch y.n.Kind {
	case yaml.MappingNode:
		n := len(y.n.Content) / 2
		d.Kind, d.Display, d.HasChildren = KindObject, objectDisplay(n), n > 0
	case yaml.SequenceNode:
		n := len(y.n.Content)
		d.Kind, d.Display, d.HasChildren = KindCollection, collectionDisplay(n), n > 0
	default:
		d.Kind, d.Display = describeYAMLScalar(y.n)
	}
	return d
}

// describeYAMLScalar infers the type of plain scalars from their resolved tag.
// Quoted and block scalars are always strings.
func describeYAMLScalar(n *yaml.Node) (Kind, string) {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return KindString, QuoteString(n.Value)
	}
	switch n.ShortTag() {
	case "!!null":
		return KindNull, "null"
	case "!!bool":
		var b bool
		if n.Decode(&b) == nil {
			return KindPrimitive, strconv.FormatBool(b)
		}
	case "!!int":
		var i int64
		if n.Decode(&i) == nil {
			return KindPrimitive, strconv.FormatInt(i, 10)
		}
		var u uint64
		if n.Decode(&u) == nil {
			return KindPrimitive, strconv.FormatUint(u, 10)
		}
		return KindPrimitive, n.Value
	case "!!float":
		var f float64
		if n.Decode(&f) == nil {
			return KindPrimitive, FormatFloat(f, 64)
		}
		return KindPrimitive, n.Value
	case "!!timestamp":
		var t time.Time
		if n.Decode(&t) == nil {
			return KindDateTime, FormatTime(t)
		}
	}
	return KindString, QuoteString(n.Value)
}

func (y yamlValue) position() textpos.Position {
	start := y.n
	if y.key != nil {
		start = y.key
	}
	if start == nil || start.Line == 0 {
		return textpos.Position{}
	}
	p := textpos.Position{StartLine: start.Line, StartCol: start.Column}
	if y.n != nil {
		p.EndLine, p.EndCol = yamlEnd(y.n, 0)
	}
	return p
}

// yamlEnd returns the end of the last character belonging to n, or zeros when
// it cannot be derived from the node.
func yamlEnd(n *yaml.Node, depth int) (int, int) {
	n = resolveYAML(n)
	if n == nil || depth > maxAliasHops {
		return 0, 0
	}
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		if len(n.Content) == 0 {
			if n.Style&yaml.FlowStyle != 0 {
				return n.Line, n.Column + 2
			}
			return 0, 0
		}
		last := n.Content[len(n.Content)-1]
		if last.Kind == yaml.AliasNode {
			return last.Line, last.Column + 1 + utf8.RuneCountInString(last.Value)
		}
		return yamlEnd(last, depth+1)
	case yaml.ScalarNode:
		if strings.ContainsAny(n.Value, "\r\n") {
			return 0, 0
		}
		width := utf8.RuneCountInString(n.Value)
		switch {
		case n.Style&yaml.SingleQuotedStyle != 0:
			width += 2 + strings.Count(n.Value, "'")
		case n.Style&yaml.DoubleQuotedStyle != 0:
			if strings.ContainsAny(n.Value, "\\\"\t") {
				return 0, 0
			}
			width += 2
		case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
			return 0, 0
		}
		return n.Line, n.Column + width
	}
	return 0, 0
}

func (y yamlValue) Children() []Child {
	switch kindOf(y.n) {
	case yaml.MappingNode:
		children := make([]Child, 0, len(y.n.Content)/2)
		for i := 0; i+1 < len(y.n.Content); i += 2 {
			key, val := y.n.Content[i], y.n.Content[i+1]
			var v Source = newYAMLValue(val, key)
			if seq := resolveYAML(val); homogeneousYAMLMappings(seq) {
				v = WithItemTypeName(v, Singularize(key.Value))
			}
			children = append(children, Child{Value: v, Name: key.Value})
		}
		sortByName(children)
		return children
	case yaml.SequenceNode:
		children := make([]Child, len(y.n.Content))
		for i, item := range y.n.Content {
			children[i] = Child{Value: newYAMLValue(item, nil), Name: indexName(i)}
		}
		return children
	}
	return nil
}

func homogeneousYAMLMappings(n *yaml.Node) bool {
	if kindOf(n) != yaml.SequenceNode || len(n.Content) == 0 {
		return false
	}
	for _, item := range n.Content {
		if kindOf(resolveYAML(item)) != yaml.MappingNode {
			return false
		}
	}
	return true
}

func (y yamlValue) Count() (int, bool) {
	switch kindOf(y.n) {
	case yaml.MappingNode:
		return len(y.n.Content) / 2, true
	case yaml.SequenceNode:
		return len(y.n.Content), true
	}
	return 0, true
}

func (y yamlValue) Identity() (Identity, bool) {
	switch kindOf(y.n) {
	case yaml.MappingNode, yaml.SequenceNode:
		return identityOf(y.n), true
	}
	return Identity{}, false
}
