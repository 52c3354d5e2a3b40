// Package flatten exposes a forest of tree nodes as one indexable sequence of
// visible nodes in outline (pre-order) order.
//
// Toggling a node only invalidates the view. The next query rebuilds a span
// index over the expanded nodes: for every expanded node it records the size
// of its visible subtree and the offset of each child, so At descends with a
// binary search per level instead of walking earlier items.
package flatten

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvtree/internal/tree"
)

// ErrIndexOutOfRange is returned by At for an index outside [0, Count()).
var ErrIndexOutOfRange = errors.New("index out of range")

// DefaultCacheSize bounds the number of At results kept between invalidations.
const DefaultCacheSize = 512

// Item is one visible node and its depth below its root.
type Item struct {
	Node  *tree.Node
	Depth int
}

// EventKind identifies a view notification.
type EventKind int

const (
	// EventReset means every index may have changed.
	EventReset EventKind = iota
)

// Event is delivered to subscribers after the view changes.
type Event struct {
	Kind EventKind
}

// span describes the visible subtree of an expanded node.
type span struct {
	size int
	// starts[i] is the offset of child i relative to the node. A nil slice
	// means the children are not materialized yet and child i sits at i+1.
	starts []int
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(v *View) {
		v.log = log
	}
}

// WithCacheSize bounds the At cache. Zero disables it.
func WithCacheSize(n int) Option {
	return func(v *View) {
		if n >= 0 {
			v.cacheSize = n
		}
	}
}

// View is the flattened projection of a forest. It is not safe for concurrent
// use; all calls must come from the goroutine that owns the tree.
type View struct {
	log       logr.Logger
	roots     []*tree.Node
	rootStart []int
	spans     map[*tree.Node]*span
	count     int
	dirty     bool

	cacheSize int
	cache     map[int]Item

	observers map[int]func(Event)
	nextObs   int
}

// New returns a view over roots.
func New(roots []*tree.Node, opts ...Option) *View {
	v := &View{
		log:       logr.Discard(),
		cacheSize: DefaultCacheSize,
		observers: map[int]func(Event){},
		dirty:     true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.roots = append([]*tree.Node(nil), roots...)
	return v
}

// Roots returns the forest the view projects.
func (v *View) Roots() []*tree.Node {
	return v.roots
}

// SetRoots replaces the forest.
func (v *View) SetRoots(roots []*tree.Node) {
	v.roots = append(v.roots[:0:0], roots...)
	v.Invalidate()
}

// AddRoot appends a root to the forest.
func (v *View) AddRoot(root *tree.Node) {
	v.roots = append(v.roots, root)
	v.Invalidate()
}

// Clear removes every root.
func (v *View) Clear() {
	v.roots = nil
	v.Invalidate()
}

// Invalidate drops every cached index and notifies subscribers.
func (v *View) Invalidate() {
	v.dirty = true
	v.spans = nil
	v.cache = nil
	v.notify(Event{Kind: EventReset})
}

// SetExpanded changes a node's expanded state and invalidates the view when
// the state actually changed.
func (v *View) SetExpanded(n *tree.Node, expanded bool) {
	if n == nil || n.Expanded() == expanded {
		return
	}
	n.SetExpanded(expanded)
	if n.Expanded() == expanded {
		v.Invalidate()
	}
}

// Toggle flips a node's expanded state.
func (v *View) Toggle(n *tree.Node) {
	if n == nil || !n.HasChildren() {
		return
	}
	v.SetExpanded(n, !n.Expanded())
}

// Subscribe registers fn for view events. Events are delivered synchronously
// on the calling goroutine. The returned func removes the subscription.
func (v *View) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	return func() { delete(v.observers, id) }
}

func (v *View) notify(e Event) {
	ids := make([]int, 0, len(v.observers))
	for id := range v.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := v.observers[id]; ok {
			fn(e)
		}
	}
}

// Count returns the number of visible nodes.
func (v *View) Count() int {
	v.ensure()
	return v.count
}

// ensure rebuilds the span index after an invalidation.
func (v *View) ensure() {
	if !v.dirty {
		return
	}
	start := time.Now()
	v.spans = make(map[*tree.Node]*span)
	v.rootStart = make([]int, len(v.roots))
	total := 0
	for i, r := range v.roots {
		v.rootStart[i] = total
		total += v.measure(r)
	}
	v.count = total
	v.dirty = false
	v.log.V(2).Info("rebuilt flattened view", "roots", len(v.roots), "visible", total, "expanded", len(v.spans), "duration", time.Since(start))
}

// measure returns the visible size of n's subtree and records spans for the
// expanded nodes in it. Unmaterialized children are collapsed, so a node whose
// children were never read contributes one row per child.
func (v *View) measure(n *tree.Node) int {
	if !n.Expanded() {
		return 1
	}
	if !n.Materialized() {
		if c, exact := n.KnownChildCount(); exact {
			v.spans[n] = &span{size: 1 + c}
			return 1 + c
		}
	}
	kids := n.Children()
	sp := &span{starts: make([]int, len(kids))}
	size := 1
	for i, c := range kids {
		sp.starts[i] = size
		size += v.measure(c)
	}
	sp.size = size
	v.spans[n] = sp
	return size
}

// At returns the visible node at index i.
func (v *View) At(i int) (Item, error) {
	v.ensure()
	if i < 0 || i >= v.count {
		return Item{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, v.count)
	}
	if it, ok := v.cache[i]; ok {
		return it, nil
	}

	r := sort.Search(len(v.rootStart), func(j int) bool { return v.rootStart[j] > i }) - 1
	node, off, depth := v.roots[r], i-v.rootStart[r], 0
	for off > 0 {
		sp := v.spans[node]
		if sp == nil {
			return Item{}, fmt.Errorf("flattened view out of sync at %q", node.Label())
		}
		kids := node.Children()
		j := off - 1
		if sp.starts != nil {
			j = sort.Search(len(sp.starts), func(k int) bool { return sp.starts[k] > off }) - 1
			off -= sp.starts[j]
		} else {
			off = 0
		}
		if j < 0 || j >= len(kids) {
			return Item{}, fmt.Errorf("flattened view out of sync at %q", node.Label())
		}
		node = kids[j]
		depth++
	}

	it := Item{Node: node, Depth: depth}
	v.remember(i, it)
	return it, nil
}

func (v *View) remember(i int, it Item) {
	if v.cacheSize == 0 {
		return
	}
	if v.cache == nil || len(v.cache) >= v.cacheSize {
		v.cache = make(map[int]Item, v.cacheSize)
	}
	v.cache[i] = it
}

// IndexOf returns the index of n, or false when n is not visible.
func (v *View) IndexOf(n *tree.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	v.ensure()
	for i, r := range v.roots {
		if idx, ok := v.indexIn(r, n, v.rootStart[i]); ok {
			return idx, true
		}
	}
	return 0, false
}

func (v *View) indexIn(n, target *tree.Node, base int) (int, bool) {
	if n == target {
		return base, true
	}
	if !n.Expanded() || !n.Materialized() || target.Depth() <= n.Depth() {
		return 0, false
	}
	sp := v.spans[n]
	if sp == nil {
		return 0, false
	}
	for j, c := range n.Children() {
		off := j + 1
		if sp.starts != nil {
			off = sp.starts[j]
		}
		if idx, ok := v.indexIn(c, target, base+off); ok {
			return idx, true
		}
	}
	return 0, false
}

// FindByLine returns the node with the greatest effective start line not
// after line, searching the whole forest whether or not it is expanded. On a
// tie the node visited later in pre-order wins, so descendants beat their
// ancestors.
func (v *View) FindByLine(line int) *tree.Node {
	var best *tree.Node
	bestLine := 0
	tree.Walk(v.roots, func(n *tree.Node) bool {
		l := n.Line()
		if l > line {
			return false
		}
		if l > 0 && l >= bestLine {
			best, bestLine = n, l
		}
		return true
	})
	return best
}
