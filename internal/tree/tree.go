// Package tree builds a lazy, depth-bounded, cycle-safe tree over adapted
// document values. Children are created the first time they are read and are
// cached for the lifetime of the node.
package tree

import (
	"github.com/oakwood-commons/kvtree/internal/adapter"
	"github.com/oakwood-commons/kvtree/internal/textpos"
)

const (
	// DefaultMaxDepth is the depth at which values stop being expanded.
	DefaultMaxDepth = 10
	// DefaultAutoExpandLimit is the largest child count a root may have and
	// still start expanded.
	DefaultAutoExpandLimit = 100

	circularDisplay = "<circular reference>"
	maxDepthDisplay = "<max depth reached>"
)

type config struct {
	maxDepth        int
	autoExpandLimit int
	name            string
}

// Option configures NewRoot.
type Option func(*config)

// WithMaxDepth sets the depth at which nodes are classified MaxDepthReached.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithAutoExpandLimit sets the child count above which a root starts collapsed.
func WithAutoExpandLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.autoExpandLimit = n
		}
	}
}

// WithName names the root node.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// ancestry is the chain of container identities above a node. Each child
// extends its parent's chain without modifying it, so siblings never observe
// each other's entries.
type ancestry struct {
	id     adapter.Identity
	parent *ancestry
}

func (a *ancestry) contains(id adapter.Identity) bool {
	for ; a != nil; a = a.parent {
		if a.id == id {
			return true
		}
	}
	return false
}

// Node is one value at one position of the tree.
type Node struct {
	cfg *config

	name     string
	value    any
	src      adapter.Source
	kind     adapter.Kind
	display  string
	typeName string
	hasKids  bool
	pos      textpos.Position
	line     int
	depth    int
	visited  *ancestry

	expanded     bool
	materialized bool
	children     []*Node
}

// NewRoot wraps value as a depth-0 node.
func NewRoot(value any, opts ...Option) *Node {
	cfg := &config{maxDepth: DefaultMaxDepth, autoExpandLimit: DefaultAutoExpandLimit}
	for _, opt := range opts {
		opt(cfg)
	}
	n := newNode(cfg, adapter.Child{Value: value, Name: cfg.name}, 0, nil)
	n.expanded = !n.hasKids || n.ChildCount() <= cfg.autoExpandLimit
	return n
}

// newNode classifies c once. The depth bound wins over cycle detection.
func newNode(cfg *config, c adapter.Child, depth int, visited *ancestry) *Node {
	src := adapter.Adapt(c.Value)
	desc := src.Describe()
	n := &Node{
		cfg:      cfg,
		name:     c.Name,
		value:    c.Value,
		src:      src,
		kind:     desc.Kind,
		display:  desc.Display,
		typeName: desc.TypeName,
		hasKids:  desc.HasChildren && desc.Kind.IsContainer(),
		pos:      desc.Position,
		line:     c.Line,
		depth:    depth,
		visited:  visited,
	}
	if c.TypeName != "" {
		n.typeName = c.TypeName
	}

	id, hasID := src.Identity()
	switch {
	case depth >= cfg.maxDepth:
		n.kind, n.display, n.hasKids = adapter.KindMaxDepthReached, maxDepthDisplay, false
	case hasID && visited.contains(id):
		n.kind, n.display, n.hasKids = adapter.KindCircularReference, circularDisplay, false
	case hasID && n.hasKids:
		n.visited = &ancestry{id: id, parent: visited}
	}
	return n
}

// Children materializes the children on first call and returns the same
// slice afterwards.
func (n *Node) Children() []*Node {
	if n.materialized {
		return n.children
	}
	n.materialized = true
	if !n.hasKids {
		return nil
	}
	entries := n.src.Children()
	n.children = make([]*Node, len(entries))
	for i, c := range entries {
		n.children[i] = newNode(n.cfg, c, n.depth+1, n.visited)
	}
	return n.children
}

// ChildCount returns the number of children without materializing them. When
// the source cannot count cheaply it estimates 1.
func (n *Node) ChildCount() int {
	c, _ := n.KnownChildCount()
	return c
}

// KnownChildCount returns the child count and whether it is exact.
func (n *Node) KnownChildCount() (int, bool) {
	switch {
	case n.materialized:
		return len(n.children), true
	case !n.hasKids:
		return 0, true
	}
	if c, cheap := n.src.Count(); cheap {
		return c, true
	}
	return 1, false
}

// Materialized reports whether Children has been called.
func (n *Node) Materialized() bool { return n.materialized }

// SetExpanded sets the expanded flag. Nodes without children never expand.
func (n *Node) SetExpanded(expanded bool) {
	n.expanded = expanded && n.hasKids
}

// Expanded reports whether the node's children are visible.
func (n *Node) Expanded() bool { return n.expanded && n.hasKids }

// Toggle flips the expanded flag and reports the new state.
func (n *Node) Toggle() bool {
	n.SetExpanded(!n.Expanded())
	return n.Expanded()
}

func (n *Node) Name() string               { return n.name }
func (n *Node) Value() any                 { return n.value }
func (n *Node) Kind() adapter.Kind         { return n.kind }
func (n *Node) Display() string            { return n.display }
func (n *Node) TypeName() string           { return n.typeName }
func (n *Node) HasChildren() bool          { return n.hasKids }
func (n *Node) Position() textpos.Position { return n.pos }
func (n *Node) Depth() int                 { return n.depth }
func (n *Node) Source() adapter.Source     { return n.src }
func (n *Node) Representation() adapter.Representation {
	return n.src.Representation()
}

// LineOverride returns the display line assigned by the parent container, or 0.
func (n *Node) LineOverride() int { return n.line }

// Line returns the effective start line: the override when set, else the
// structural start line. Zero means the node has no line.
func (n *Node) Line() int {
	if n.line > 0 {
		return n.line
	}
	return n.pos.StartLine
}

// Label renders the node the way an outline row shows it.
func (n *Node) Label() string {
	switch {
	case n.name == "":
		return n.display
	case n.display == "":
		return n.name
	}
	return n.name + ": " + n.display
}

func (n *Node) String() string { return n.Label() }
