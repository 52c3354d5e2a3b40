// Package selection keeps the selected tree node and the raw-text selection
// in step. Selecting a node resolves its source position to a text range;
// moving the text caret finds the enclosing node, reveals it and selects it.
//
// Each direction raises a suppression flag while it runs so that a host which
// echoes the change back synchronously does not start the opposite direction.
package selection

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvtree/internal/flatten"
	"github.com/oakwood-commons/kvtree/internal/navigator"
	"github.com/oakwood-commons/kvtree/internal/search"
	"github.com/oakwood-commons/kvtree/internal/textpos"
	"github.com/oakwood-commons/kvtree/internal/tree"
)

// ErrNoSelection is returned by operations that need a selected node.
var ErrNoSelection = errors.New("no node selected")

// EventKind identifies a controller notification.
type EventKind int

const (
	// EventSelectedNode is sent when the selected node changes.
	EventSelectedNode EventKind = iota
	// EventSelectedRange is sent when the text selection should change. A
	// range event without a range clears the text selection.
	EventSelectedRange
)

func (k EventKind) String() string {
	switch k {
	case EventSelectedNode:
		return "SelectedNode"
	case EventSelectedRange:
		return "SelectedRange"
	}
	return "Unknown"
}

// Event is delivered to subscribers synchronously.
type Event struct {
	Kind     EventKind
	Node     *tree.Node
	Range    textpos.Range
	HasRange bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithText sets the raw text up front.
func WithText(text string) Option {
	return func(c *Controller) {
		c.text = textpos.NewIndex(text)
	}
}

// Controller owns the selection. Like the view it drives, it must only be used
// from one goroutine.
type Controller struct {
	view *flatten.View
	log  logr.Logger
	text *textpos.Index

	selected *tree.Node
	rng      textpos.Range
	hasRange bool

	// inTreeToText is set while a node selection is pushed to the text side;
	// caret reports arriving meanwhile are echoes.
	inTreeToText bool
	// inTextToTree is set while a caret move is applied to the tree.
	inTextToTree bool

	observers map[int]func(Event)
	nextObs   int
}

// New returns a controller driving view.
func New(view *flatten.View, opts ...Option) *Controller {
	c := &Controller{view: view, log: logr.Discard(), observers: map[int]func(Event){}}
	for _, opt := range opts {
		opt(c)
	}
	view.Subscribe(c.onViewEvent)
	return c
}

// onViewEvent drops a selection that no longer belongs to the view's forest,
// as after SetRoots or Clear.
func (c *Controller) onViewEvent(e flatten.Event) {
	if e.Kind != flatten.EventReset || c.selected == nil {
		return
	}
	if tree.PathTo(c.view.Roots(), c.selected) != nil {
		return
	}
	c.log.V(1).Info("selection left the view", "node", c.selected.Label())
	c.selected = nil
	c.rng, c.hasRange = textpos.Range{}, false
	c.emit(Event{Kind: EventSelectedNode})
	c.emit(Event{Kind: EventSelectedRange})
}

// View returns the flattened view the controller drives.
func (c *Controller) View() *flatten.View { return c.view }

// Selected returns the selected node, or nil.
func (c *Controller) Selected() *tree.Node { return c.selected }

// SelectedIndex returns the selected node's index in the view.
func (c *Controller) SelectedIndex() (int, bool) {
	return c.view.IndexOf(c.selected)
}

// Text returns the line index of the raw text, or nil when none is set.
func (c *Controller) Text() *textpos.Index { return c.text }

// Range returns the text range of the selection, if it has one.
func (c *Controller) Range() (textpos.Range, bool) {
	return c.rng, c.hasRange
}

// Subscribe registers fn for controller events and returns a func removing it.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

func (c *Controller) emit(e Event) {
	for id := 0; id < c.nextObs; id++ {
		if fn, ok := c.observers[id]; ok {
			fn(e)
		}
	}
}

// SetText replaces the raw text. The current selection's range is resolved
// again, so text arriving after the tree still highlights correctly.
func (c *Controller) SetText(text string) {
	c.text = textpos.NewIndex(text)
	if c.selected == nil || c.inTextToTree {
		return
	}
	prev := c.inTreeToText
	c.inTreeToText = true
	defer func() { c.inTreeToText = prev }()
	c.pushRange()
}

// Select makes n the selected node and moves the text selection to its
// source range. It is ignored while a caret move is being applied.
func (c *Controller) Select(n *tree.Node) {
	if c.inTextToTree {
		return
	}
	prev := c.inTreeToText
	c.inTreeToText = true
	defer func() { c.inTreeToText = prev }()

	if n != c.selected {
		c.selected = n
		c.emit(Event{Kind: EventSelectedNode, Node: n})
	}
	c.pushRange()
}

// SelectIndex selects the visible node at index i.
func (c *Controller) SelectIndex(i int) error {
	it, err := c.view.At(i)
	if err != nil {
		return err
	}
	c.Select(it.Node)
	return nil
}

// pushRange resolves the selection's range and tells subscribers.
func (c *Controller) pushRange() {
	c.rng, c.hasRange = c.resolve(c.selected)
	c.emit(Event{Kind: EventSelectedRange, Node: c.selected, Range: c.rng, HasRange: c.hasRange})
}

// resolve maps a node's position onto the current text. Nodes with only a
// line override select that whole line. Stale or missing positions resolve
// to no range.
func (c *Controller) resolve(n *tree.Node) (textpos.Range, bool) {
	if n == nil || c.text == nil {
		return textpos.Range{}, false
	}
	if pos := n.Position(); pos.IsSet() {
		if r, ok := c.text.Resolve(pos); ok {
			return r, true
		}
		c.log.V(1).Info("stale source position", "node", n.Label(), "line", pos.StartLine)
		return textpos.Range{}, false
	}
	if line := n.LineOverride(); line > 0 {
		return c.text.ResolveLine(line)
	}
	return textpos.Range{}, false
}

// CaretMoved selects the node enclosing line, expanding its ancestors. It is
// ignored while either direction is in progress, since the caret report is
// then an echo of a range this controller sent.
func (c *Controller) CaretMoved(line int) {
	if c.inTreeToText || c.inTextToTree {
		return
	}
	prev := c.inTextToTree
	c.inTextToTree = true
	defer func() { c.inTextToTree = prev }()

	n := c.view.FindByLine(line)
	if n == nil || n == c.selected {
		return
	}
	c.reveal(n)
	c.selected = n
	c.rng, c.hasRange = c.resolve(n)
	c.emit(Event{Kind: EventSelectedNode, Node: n})
	c.emit(Event{Kind: EventSelectedRange, Node: n, Range: c.rng, HasRange: c.hasRange})
}

// CaretAtOffset is CaretMoved for a rune offset into the text.
func (c *Controller) CaretAtOffset(offset int) {
	if c.text == nil {
		return
	}
	if line, ok := c.text.LineAtOffset(offset); ok {
		c.CaretMoved(line)
	}
}

// reveal expands every ancestor of n and invalidates the view once.
func (c *Controller) reveal(n *tree.Node) {
	path := tree.PathTo(c.view.Roots(), n)
	changed := false
	for _, a := range path[:max(len(path)-1, 0)] {
		if !a.Expanded() {
			a.SetExpanded(true)
			changed = true
		}
	}
	if changed {
		c.view.Invalidate()
	}
}

// Reveal expands the ancestors of n and selects it.
func (c *Controller) Reveal(n *tree.Node) {
	if n == nil {
		return
	}
	c.reveal(n)
	c.Select(n)
}

// Search selects the next node after the selection matching expr, wrapping
// around. See package search for the expression language.
func (c *Controller) Search(expr string) (*tree.Node, error) {
	m, err := search.Compile(expr)
	if err != nil {
		return nil, err
	}
	n, err := search.Next(c.view.Roots(), c.selected, m)
	if err != nil {
		return nil, err
	}
	c.log.V(1).Info("search match", "expr", m.String(), "node", n.Label(), "line", n.Line())
	c.Reveal(n)
	return n, nil
}

// RevealPath resolves a dotted path and selects its target.
func (c *Controller) RevealPath(path string) (*tree.Node, error) {
	n, err := navigator.Find(c.view.Roots(), path)
	if err != nil {
		return nil, err
	}
	c.Reveal(n)
	return n, nil
}

// Path returns the selected node's path.
func (c *Controller) Path() (string, error) {
	if c.selected == nil {
		return "", ErrNoSelection
	}
	p, ok := navigator.PathOf(c.view.Roots(), c.selected)
	if !ok {
		return "", ErrNoSelection
	}
	return p, nil
}
