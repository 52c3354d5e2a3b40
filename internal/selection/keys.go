package selection

import (
	"github.com/oakwood-commons/kvtree/internal/tree"
)

// Key is a navigation key.
type Key int

const (
	KeyEnter Key = iota
	KeySpace
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyHome
	KeyEnd
)

// ParseKey maps key names as reported by terminal libraries to a Key.
func ParseKey(name string) (Key, bool) {
	switch name {
	case "enter":
		return KeyEnter, true
	case "space", " ":
		return KeySpace, true
	case "right", "l":
		return KeyRight, true
	case "left", "h":
		return KeyLeft, true
	case "down", "j":
		return KeyDown, true
	case "up", "k":
		return KeyUp, true
	case "home", "g":
		return KeyHome, true
	case "end", "G":
		return KeyEnd, true
	}
	return 0, false
}

// HandleKey applies a navigation key to the logical tree and reports whether
// anything changed. With nothing selected, every key selects the first root.
func (c *Controller) HandleKey(k Key) bool {
	roots := c.view.Roots()
	if len(roots) == 0 {
		return false
	}
	n := c.selected
	if n == nil {
		c.Select(roots[0])
		return true
	}

	switch k {
	case KeyEnter, KeySpace:
		if !n.HasChildren() {
			return false
		}
		c.view.Toggle(n)
		return true
	case KeyRight:
		if !n.HasChildren() {
			return false
		}
		if !n.Expanded() {
			c.view.SetExpanded(n, true)
			return true
		}
		return c.move(firstChild(n))
	case KeyLeft:
		if n.Expanded() {
			c.view.SetExpanded(n, false)
			return true
		}
		return c.move(tree.Parent(roots, n))
	case KeyDown:
		return c.move(tree.NextVisible(roots, n))
	case KeyUp:
		return c.move(tree.PrevVisible(roots, n))
	case KeyHome:
		return c.move(roots[0])
	case KeyEnd:
		return c.move(tree.LastVisible(roots[len(roots)-1]))
	}
	return false
}

func (c *Controller) move(to *tree.Node) bool {
	if to == nil || to == c.selected {
		return false
	}
	c.Select(to)
	return true
}

func firstChild(n *tree.Node) *tree.Node {
	if kids := n.Children(); len(kids) > 0 {
		return kids[0]
	}
	return nil
}
